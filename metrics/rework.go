package metrics

import "github.com/ip-san/devsync/record"

// ReworkRateMetrics quantifies post-creation churn on pull requests.
type ReworkRateMetrics struct {
	TotalPRs               int     `json:"total_prs"`
	TotalAdditionalCommits int     `json:"total_additional_commits"`
	TotalForcePushes       int     `json:"total_force_pushes"`
	PRsWithForcePush       int     `json:"prs_with_force_push"`
	AdditionalCommits      Summary `json:"additional_commits"`
	ForcePushRate          float64 `json:"force_push_rate"`
}

// ReworkRate counts, per pull request, the commits added after it was
// opened and the force pushes rewriting its history. ForcePushRate is the
// percentage of pull requests with at least one force push, 0 when there
// are no pull requests.
func ReworkRate(prs []record.PullRequest) ReworkRateMetrics {
	out := ReworkRateMetrics{TotalPRs: len(prs)}
	var samples []float64
	for _, pr := range prs {
		additional := 0
		for _, c := range pr.Commits {
			if c.CommittedAt.After(pr.CreatedAt) {
				additional++
			}
		}
		out.TotalAdditionalCommits += additional
		out.TotalForcePushes += pr.ForcePushCount
		if pr.ForcePushCount > 0 {
			out.PRsWithForcePush++
		}
		samples = append(samples, float64(additional))
	}

	out.AdditionalCommits = Summarize(samples)
	if out.TotalPRs > 0 {
		out.ForcePushRate = Round1(float64(out.PRsWithForcePush) / float64(out.TotalPRs) * 100)
	}
	return out
}
