package metrics

import (
	"maps"
	"slices"
)

// RepositorySummary is one repository's mean DORA figures over its own
// periods. MTTR averages only the periods that produced recovery evidence.
type RepositorySummary struct {
	Repository           string   `json:"repository"`
	Periods              int      `json:"periods"`
	AvgDeploymentCount   *float64 `json:"avg_deployment_count"`
	AvgLeadTimeHours     *float64 `json:"avg_lead_time_hours"`
	AvgChangeFailureRate *float64 `json:"avg_change_failure_rate"`
	AvgMTTRHours         *float64 `json:"avg_mttr_hours"`
}

// AggregatedSummary is the fleet-wide rollup: per-repository summaries
// plus the unweighted mean across them.
type AggregatedSummary struct {
	Repositories         []RepositorySummary `json:"repositories"`
	RepositoryCount      int                 `json:"repository_count"`
	AvgDeploymentCount   *float64            `json:"avg_deployment_count"`
	AvgLeadTimeHours     *float64            `json:"avg_lead_time_hours"`
	AvgChangeFailureRate *float64            `json:"avg_change_failure_rate"`
	AvgMTTRHours         *float64            `json:"avg_mttr_hours"`
}

// Aggregate rolls per-repository rows into a fleet summary in two
// unweighted levels: first each repository's mean over its own periods,
// then the arithmetic mean of those means. A repository with one period
// counts exactly as much as one with a hundred.
func Aggregate(perRepo map[string][]DevOpsMetrics) AggregatedSummary {
	var out AggregatedSummary
	var deployMeans, leadMeans, failureMeans, mttrMeans []float64

	for _, repo := range slices.Sorted(maps.Keys(perRepo)) {
		rows := perRepo[repo]
		if len(rows) == 0 {
			continue
		}

		var deploys, leads, failures, mttrs []float64
		for _, row := range rows {
			deploys = append(deploys, float64(row.DeploymentCount))
			leads = append(leads, row.LeadTimeHours)
			failures = append(failures, row.ChangeFailureRate)
			if row.MTTRHours != nil {
				mttrs = append(mttrs, *row.MTTRHours)
			}
		}

		summary := RepositorySummary{
			Repository:           repo,
			Periods:              len(rows),
			AvgDeploymentCount:   ptr(Round1(mean(deploys))),
			AvgLeadTimeHours:     ptr(Round1(mean(leads))),
			AvgChangeFailureRate: ptr(Round1(mean(failures))),
		}
		if len(mttrs) > 0 {
			summary.AvgMTTRHours = ptr(Round1(mean(mttrs)))
		}
		out.Repositories = append(out.Repositories, summary)

		deployMeans = append(deployMeans, *summary.AvgDeploymentCount)
		leadMeans = append(leadMeans, *summary.AvgLeadTimeHours)
		failureMeans = append(failureMeans, *summary.AvgChangeFailureRate)
		if summary.AvgMTTRHours != nil {
			mttrMeans = append(mttrMeans, *summary.AvgMTTRHours)
		}
	}

	out.RepositoryCount = len(out.Repositories)
	if out.RepositoryCount > 0 {
		out.AvgDeploymentCount = ptr(Round1(mean(deployMeans)))
		out.AvgLeadTimeHours = ptr(Round1(mean(leadMeans)))
		out.AvgChangeFailureRate = ptr(Round1(mean(failureMeans)))
	}
	if len(mttrMeans) > 0 {
		out.AvgMTTRHours = ptr(Round1(mean(mttrMeans)))
	}
	return out
}
