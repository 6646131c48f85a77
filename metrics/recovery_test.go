package metrics

import (
	"testing"
	"time"

	"github.com/ip-san/devsync/record"
)

func TestRecoveryFromEventsPairing(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		events []RecoveryEvent
		want   *float64
	}{
		{
			"trailing failure is dropped",
			[]RecoveryEvent{
				{At: t0, Failed: true},
				{At: t0.Add(3 * time.Hour)},
				{At: t0.Add(5 * time.Hour), Failed: true},
			},
			ptr(3.0),
		},
		{
			"most recent failure wins",
			[]RecoveryEvent{
				{At: t0, Failed: true},
				{At: t0.Add(time.Hour), Failed: true},
				{At: t0.Add(3 * time.Hour)},
			},
			ptr(2.0),
		},
		{
			"two full cycles average",
			[]RecoveryEvent{
				{At: t0, Failed: true},
				{At: t0.Add(time.Hour)},
				{At: t0.Add(2 * time.Hour), Failed: true},
				{At: t0.Add(5 * time.Hour)},
			},
			ptr(2.0),
		},
		{
			"success without prior failure",
			[]RecoveryEvent{{At: t0}, {At: t0.Add(time.Hour)}},
			nil,
		},
		{"no events", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecoveryFromEvents(tt.events)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %v, want nil", *got)
			case tt.want != nil && got == nil:
				t.Errorf("got nil, want %v", *tt.want)
			case tt.want != nil && got != nil && *got != *tt.want:
				t.Errorf("got %v, want %v", *got, *tt.want)
			}
		})
	}
}

func TestDeploymentRecoveryEvents(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	deployments := []record.Deployment{
		// Out of order; the helper must sort.
		{ID: 2, CreatedAt: t0.Add(2 * time.Hour), Status: record.StatusSuccess},
		{ID: 1, CreatedAt: t0, Status: record.StatusError},
		{ID: 3, CreatedAt: t0.Add(time.Hour), Status: record.StatusPending},
		{ID: 4, CreatedAt: t0.Add(3 * time.Hour), Status: record.StatusUnknown},
	}

	events := DeploymentRecoveryEvents(deployments)
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2 (pending and unknown skipped)", len(events))
	}
	if !events[0].Failed || events[1].Failed {
		t.Errorf("events out of order or mislabeled: %+v", events)
	}

	mttr := RecoveryFromEvents(events)
	wantFloat(t, "MTTR", mttr, 2.0)
}

func TestWorkflowRecoveryEvents(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	runs := []record.WorkflowRun{
		{ID: 1, Name: "Deploy", Conclusion: "failure", CreatedAt: t0},
		{ID: 2, Name: "Deploy", Conclusion: "success", CreatedAt: t0.Add(90 * time.Minute)},
		{ID: 3, Name: "Tests", Conclusion: "failure", CreatedAt: t0.Add(10 * time.Minute)},
		{ID: 4, Name: "Deploy", Conclusion: "", CreatedAt: t0.Add(20 * time.Minute)},
	}

	events := WorkflowRecoveryEvents(runs, deployPatterns)
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2 (non-deploy and unconcluded runs skipped)", len(events))
	}
	mttr := RecoveryFromEvents(events)
	wantFloat(t, "MTTR", mttr, 1.5)
}

func TestIncidentRecovery(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	incidents := []record.Incident{
		{ID: 1, Number: 101, State: "closed", CreatedAt: t0, ClosedAt: timePtr(t0.Add(4 * time.Hour))},
		{ID: 2, Number: 102, State: "closed", CreatedAt: t0, ClosedAt: timePtr(t0.Add(2 * time.Hour))},
		{ID: 3, Number: 103, State: "open", CreatedAt: t0},
	}

	stats := IncidentRecovery(incidents)
	if stats.IncidentCount != 3 || stats.OpenIncidents != 1 {
		t.Errorf("counts = %d total / %d open, want 3/1", stats.IncidentCount, stats.OpenIncidents)
	}
	wantFloat(t, "MTTRHours", stats.MTTRHours, 3.0)
}

func TestIncidentRecoveryNoneClosed(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	incidents := []record.Incident{
		{ID: 1, Number: 101, State: "open", CreatedAt: t0},
		{ID: 2, Number: 102, State: "open", CreatedAt: t0},
	}

	stats := IncidentRecovery(incidents)
	if stats.IncidentCount != 2 || stats.OpenIncidents != 2 {
		t.Errorf("counts = %d/%d, want 2/2", stats.IncidentCount, stats.OpenIncidents)
	}
	wantNil(t, "MTTRHours", stats.MTTRHours)
}
