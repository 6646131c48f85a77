package metrics

import (
	"time"

	"github.com/ip-san/devsync/record"
)

// ReviewEfficiencyMetrics aggregates four review phases. The phases are
// independent: each is aggregated over only the pull requests that have a
// value for that phase, so a pull request missing one phase still
// contributes to the others.
type ReviewEfficiencyMetrics struct {
	TimeToFirstReview Summary `json:"time_to_first_review"`
	ReviewDuration    Summary `json:"review_duration"`
	TimeToMerge       Summary `json:"time_to_merge"`
	TotalTime         Summary `json:"total_time"`
	ReviewedPRs       int     `json:"reviewed_prs"`
	MergedPRs         int     `json:"merged_prs"`
}

// ReviewEfficiency measures the review pipeline per pull request:
// creation to first review, first review to merge, creation to merge, and
// creation to close (merged or not). Negative phase durations are data
// anomalies and are discarded.
func ReviewEfficiency(prs []record.PullRequest) ReviewEfficiencyMetrics {
	var out ReviewEfficiencyMetrics
	var firstReview, duration, toMerge, total []float64

	for _, pr := range prs {
		if pr.FirstReviewAt != nil {
			out.ReviewedPRs++
			appendHours(&firstReview, pr.CreatedAt, *pr.FirstReviewAt)
		}
		if pr.Merged() {
			out.MergedPRs++
			appendHours(&toMerge, pr.CreatedAt, *pr.MergedAt)
			if pr.FirstReviewAt != nil {
				appendHours(&duration, *pr.FirstReviewAt, *pr.MergedAt)
			}
		}
		switch {
		case pr.Merged():
			appendHours(&total, pr.CreatedAt, *pr.MergedAt)
		case pr.ClosedAt != nil:
			appendHours(&total, pr.CreatedAt, *pr.ClosedAt)
		}
	}

	out.TimeToFirstReview = Summarize(firstReview)
	out.ReviewDuration = Summarize(duration)
	out.TimeToMerge = Summarize(toMerge)
	out.TotalTime = Summarize(total)
	return out
}

func appendHours(samples *[]float64, from, to time.Time) {
	if to.Before(from) {
		return
	}
	*samples = append(*samples, to.Sub(from).Hours())
}
