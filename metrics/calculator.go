package metrics

import (
	"time"

	"github.com/ip-san/devsync/record"
)

// Options are the tunables shared by the composite calculators, normally
// loaded from the rules file.
type Options struct {
	// MergeDeployThreshold caps the merge-to-deploy attribution window.
	MergeDeployThreshold time.Duration
	// DeployNamePatterns mark workflow runs that stand in for deployments.
	DeployNamePatterns []string
}

// Calculator composes the per-metric functions into per-repository DORA
// rows under one set of tunables.
type Calculator struct {
	threshold time.Duration
	patterns  []string
}

// NewCalculator builds a calculator, falling back to the default
// merge-to-deploy threshold when none is configured.
func NewCalculator(opts Options) *Calculator {
	if opts.MergeDeployThreshold <= 0 {
		opts.MergeDeployThreshold = DefaultMergeDeployThreshold
	}
	return &Calculator{threshold: opts.MergeDeployThreshold, patterns: opts.DeployNamePatterns}
}

// Input is a raw record set. It may span many repositories; Repository
// filters it down before computing.
type Input struct {
	PullRequests []record.PullRequest
	Deployments  []record.Deployment
	WorkflowRuns []record.WorkflowRun
	Incidents    []record.Incident
}

// ForRepository returns the subset of the input belonging to one
// repository.
func (in Input) ForRepository(repo string) Input {
	var out Input
	for _, pr := range in.PullRequests {
		if pr.Repository == repo {
			out.PullRequests = append(out.PullRequests, pr)
		}
	}
	for _, d := range in.Deployments {
		if d.Repository == repo {
			out.Deployments = append(out.Deployments, d)
		}
	}
	for _, r := range in.WorkflowRuns {
		if r.Repository == repo {
			out.WorkflowRuns = append(out.WorkflowRuns, r)
		}
	}
	for _, inc := range in.Incidents {
		if inc.Repository == repo {
			out.Incidents = append(out.Incidents, inc)
		}
	}
	return out
}

// DevOpsMetrics is one repository's DORA row for one period.
type DevOpsMetrics struct {
	Repository          string            `json:"repository"`
	Period              record.Period     `json:"period"`
	DeploymentCount     int               `json:"deployment_count"`
	DeploymentFrequency FrequencyCategory `json:"deployment_frequency"`
	DeploymentsPerDay   float64           `json:"deployments_per_day"`
	LeadTimeHours       float64           `json:"lead_time_hours"`
	LeadTime            LeadTime          `json:"lead_time_measurement"`
	TotalDeployments    int               `json:"total_deployments"`
	FailedDeployments   int               `json:"failed_deployments"`
	ChangeFailureRate   float64           `json:"change_failure_rate"`
	MTTRHours           *float64          `json:"mttr_hours"`
	Incidents           *IncidentStats    `json:"incidents,omitempty"`
}

// Repository computes the DORA row for one repository over a period. The
// recovery strategy is picked by data availability: incident records win,
// then the deployment timeline, then the deploy-named workflow timeline.
func (c *Calculator) Repository(repo string, in Input, period record.Period) DevOpsMetrics {
	in = in.ForRepository(repo)

	frequency := ClassifyDeploymentFrequency(in.Deployments, in.WorkflowRuns, c.patterns, period.Days())
	lead := LeadTimeForChanges(in.PullRequests, in.Deployments, c.threshold)
	failure := ChangeFailureRate(in.Deployments, in.WorkflowRuns, c.patterns)

	m := DevOpsMetrics{
		Repository:          repo,
		Period:              period,
		DeploymentCount:     frequency.Count,
		DeploymentFrequency: frequency.Category,
		DeploymentsPerDay:   frequency.PerDay,
		LeadTimeHours:       lead.AvgHours,
		LeadTime:            lead,
		TotalDeployments:    failure.Total,
		FailedDeployments:   failure.Failed,
		ChangeFailureRate:   failure.Rate,
	}

	if len(in.Incidents) > 0 {
		stats := IncidentRecovery(in.Incidents)
		m.Incidents = &stats
		m.MTTRHours = stats.MTTRHours
		return m
	}

	events := DeploymentRecoveryEvents(in.Deployments)
	if len(events) == 0 {
		events = WorkflowRecoveryEvents(in.WorkflowRuns, c.patterns)
	}
	m.MTTRHours = RecoveryFromEvents(events)
	return m
}
