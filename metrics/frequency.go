package metrics

import "github.com/ip-san/devsync/record"

// FrequencyCategory buckets a deployment rate the way DORA reports do.
type FrequencyCategory string

const (
	FrequencyDaily   FrequencyCategory = "daily"
	FrequencyWeekly  FrequencyCategory = "weekly"
	FrequencyMonthly FrequencyCategory = "monthly"
	FrequencyYearly  FrequencyCategory = "yearly"
)

// DeploymentFrequency is the deployment count for a period with its
// per-day rate and category.
type DeploymentFrequency struct {
	Count    int               `json:"count"`
	PerDay   float64           `json:"per_day"`
	Category FrequencyCategory `json:"category"`
}

// ClassifyDeploymentFrequency counts successful deployments over the
// period and buckets the per-day rate. When no deployment succeeded, runs
// of deploy-named workflows (case-insensitive substring match against
// patterns) that concluded successfully stand in. Category boundaries are
// inclusive: exactly one per day is daily, exactly one per week is weekly.
func ClassifyDeploymentFrequency(deployments []record.Deployment, runs []record.WorkflowRun, patterns []string, periodDays float64) DeploymentFrequency {
	count := 0
	for _, d := range deployments {
		if d.Status == record.StatusSuccess {
			count++
		}
	}
	if count == 0 {
		for _, r := range runs {
			if r.Succeeded() && matchesAny(r.Name, patterns) {
				count++
			}
		}
	}

	if periodDays < 1 {
		periodDays = 1
	}
	perDay := float64(count) / periodDays

	category := FrequencyYearly
	switch {
	case perDay >= 1:
		category = FrequencyDaily
	case perDay >= 1.0/7:
		category = FrequencyWeekly
	case perDay >= 1.0/30:
		category = FrequencyMonthly
	}

	return DeploymentFrequency{Count: count, PerDay: perDay, Category: category}
}
