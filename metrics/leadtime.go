package metrics

import (
	"slices"
	"time"

	"github.com/ip-san/devsync/internal/timeutils"
	"github.com/ip-san/devsync/record"
)

// DefaultMergeDeployThreshold is how long after a merge a deployment may
// follow and still be attributed to that merge.
const DefaultMergeDeployThreshold = 24 * time.Hour

// LeadTime is the lead-time-for-changes figure with its measurement
// breakdown. The counts tell callers how trustworthy the average is: a
// figure built mostly from create-to-merge fallbacks says little about the
// deploy pipeline.
type LeadTime struct {
	AvgHours           float64 `json:"avg_hours"`
	AvgBusinessHours   float64 `json:"avg_business_hours"`
	MergeToDeployCount int     `json:"merge_to_deploy_count"`
	CreateToMergeCount int     `json:"create_to_merge_count"`
}

// LeadTimeForChanges measures how long merged changes took to ship. Per
// merged pull request: the earliest successful deployment at or after the
// merge yields a merge-to-deploy sample when it landed within threshold;
// otherwise the pull request falls back to a create-to-merge sample. With
// no successful deployments every merged pull request uses the fallback.
//
// Zero merged pull requests yield zero hours and zero counts, not nil.
func LeadTimeForChanges(prs []record.PullRequest, deployments []record.Deployment, threshold time.Duration) LeadTime {
	if threshold <= 0 {
		threshold = DefaultMergeDeployThreshold
	}

	var successes []record.Deployment
	for _, d := range deployments {
		if d.Status == record.StatusSuccess {
			successes = append(successes, d)
		}
	}
	slices.SortFunc(successes, func(a, b record.Deployment) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	var lt LeadTime
	var hours, businessHours []float64
	for _, pr := range prs {
		if !pr.Merged() {
			continue
		}
		mergedAt := *pr.MergedAt

		var deployedAt time.Time
		for _, d := range successes {
			if !d.CreatedAt.Before(mergedAt) {
				deployedAt = d.CreatedAt
				break
			}
		}

		if !deployedAt.IsZero() && deployedAt.Sub(mergedAt) <= threshold {
			lt.MergeToDeployCount++
			hours = append(hours, timeutils.HoursBetween(mergedAt, deployedAt))
			businessHours = append(businessHours, timeutils.BusinessHours(mergedAt, deployedAt))
		} else {
			lt.CreateToMergeCount++
			hours = append(hours, timeutils.HoursBetween(pr.CreatedAt, mergedAt))
			businessHours = append(businessHours, timeutils.BusinessHours(pr.CreatedAt, mergedAt))
		}
	}

	if len(hours) > 0 {
		lt.AvgHours = Round1(mean(hours))
		lt.AvgBusinessHours = Round1(mean(businessHours))
	}
	return lt
}
