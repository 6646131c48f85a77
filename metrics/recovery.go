package metrics

import (
	"slices"
	"time"

	"github.com/ip-san/devsync/internal/timeutils"
	"github.com/ip-san/devsync/record"
)

// RecoveryEvent is one point on a failure/recovery timeline.
type RecoveryEvent struct {
	At     time.Time
	Failed bool
}

// DeploymentRecoveryEvents builds a chronological event timeline from
// deployments. Success and failure statuses become events; unknown and
// in-flight statuses carry no recovery evidence and are skipped.
func DeploymentRecoveryEvents(deployments []record.Deployment) []RecoveryEvent {
	var events []RecoveryEvent
	for _, d := range deployments {
		switch {
		case d.Status == record.StatusSuccess:
			events = append(events, RecoveryEvent{At: d.CreatedAt})
		case d.Status.Failed():
			events = append(events, RecoveryEvent{At: d.CreatedAt, Failed: true})
		}
	}
	sortEvents(events)
	return events
}

// WorkflowRecoveryEvents builds the timeline from deploy-named workflow
// runs, the fallback when no deployment carries a status.
func WorkflowRecoveryEvents(runs []record.WorkflowRun, patterns []string) []RecoveryEvent {
	var events []RecoveryEvent
	for _, r := range runs {
		if !matchesAny(r.Name, patterns) {
			continue
		}
		switch r.Conclusion {
		case "success":
			events = append(events, RecoveryEvent{At: r.CreatedAt})
		case "failure":
			events = append(events, RecoveryEvent{At: r.CreatedAt, Failed: true})
		}
	}
	sortEvents(events)
	return events
}

func sortEvents(events []RecoveryEvent) {
	slices.SortFunc(events, func(a, b RecoveryEvent) int {
		return a.At.Compare(b.At)
	})
}

// RecoveryFromEvents scans the timeline once, tracking the most recent
// failure; each success while a failure is pending records the gap as a
// recovery sample and clears it. A failure that never recovers within the
// window is dropped, not averaged. Nil when no pair was found.
func RecoveryFromEvents(events []RecoveryEvent) *float64 {
	var samples []float64
	var pending *time.Time
	for _, e := range events {
		if e.Failed {
			at := e.At
			pending = &at
			continue
		}
		if pending != nil {
			samples = append(samples, timeutils.HoursBetween(*pending, e.At))
			pending = nil
		}
	}
	if len(samples) == 0 {
		return nil
	}
	return ptr(Round1(mean(samples)))
}

// IncidentStats is the incident-based recovery figure. Open incidents are
// counted but contribute no recovery time.
type IncidentStats struct {
	IncidentCount int      `json:"incident_count"`
	OpenIncidents int      `json:"open_incidents"`
	MTTRHours     *float64 `json:"mttr_hours"`
}

// IncidentRecovery averages creation-to-close over closed incidents. The
// counts are always reported, even when nothing closed yet and the average
// is nil.
func IncidentRecovery(incidents []record.Incident) IncidentStats {
	stats := IncidentStats{IncidentCount: len(incidents)}
	var samples []float64
	for _, inc := range incidents {
		if inc.Closed() {
			samples = append(samples, timeutils.HoursBetween(inc.CreatedAt, *inc.ClosedAt))
		} else {
			stats.OpenIncidents++
		}
	}
	if len(samples) > 0 {
		stats.MTTRHours = ptr(Round1(mean(samples)))
	}
	return stats
}
