package metrics

import (
	"time"

	"github.com/ip-san/devsync/internal/timeutils"
	"github.com/ip-san/devsync/record"
	"github.com/ip-san/devsync/trace"
)

// IssueCycleTime is one issue's journey to production. CycleTimeHours is
// nil when the production-merge chain never resolved; the chain columns
// stay populated so the path can be audited either way.
type IssueCycleTime struct {
	IssueNumber        int         `json:"issue_number"`
	IssueCreatedAt     time.Time   `json:"issue_created_at"`
	ProductionMergedAt *time.Time  `json:"production_merged_at,omitempty"`
	CycleTimeHours     *float64    `json:"cycle_time_hours,omitempty"`
	Chain              string      `json:"chain,omitempty"`
	PRChain            []trace.Hop `json:"pr_chain,omitempty"`
}

// CycleTimeMetrics is the cycle-time aggregate with its per-issue rows.
type CycleTimeMetrics struct {
	Issues []IssueCycleTime `json:"issues"`
	Stats  Summary          `json:"stats"`
}

// CycleTimes measures issue creation to production merge using the traced
// chains, keyed by issue number. Issues that were never traced are skipped;
// issues whose chain did not resolve keep their audit row but are excluded
// from the aggregate entirely, never counted as zero.
func CycleTimes(issues []record.Issue, results map[int]trace.Result) CycleTimeMetrics {
	var out CycleTimeMetrics
	var samples []float64
	for _, issue := range issues {
		res, ok := results[issue.Number]
		if !ok {
			continue
		}

		row := IssueCycleTime{
			IssueNumber:        issue.Number,
			IssueCreatedAt:     issue.CreatedAt,
			ProductionMergedAt: res.ProductionMergedAt,
			Chain:              trace.ChainString(res.Chain),
			PRChain:            res.Chain,
		}
		if res.Resolved() {
			h := timeutils.HoursBetween(issue.CreatedAt, *res.ProductionMergedAt)
			row.CycleTimeHours = ptr(Round1(h))
			samples = append(samples, h)
		}
		out.Issues = append(out.Issues, row)
	}
	out.Stats = Summarize(samples)
	return out
}

// CodingTimeMetrics is the issue-to-first-pull-request aggregate.
type CodingTimeMetrics struct {
	MeasuredIssues int     `json:"measured_issues"`
	Stats          Summary `json:"stats"`
}

// CodingTimes measures issue creation to the creation of the first linked
// pull request. Issues without a linked pull request are skipped, and a
// pull request predating its issue is a data anomaly whose sample is
// discarded.
func CodingTimes(issues []record.Issue, prs []record.PullRequest) CodingTimeMetrics {
	byNumber := make(map[int]record.PullRequest, len(prs))
	for _, pr := range prs {
		byNumber[pr.Number] = pr
	}

	var samples []float64
	for _, issue := range issues {
		if issue.FirstLinkedPR == nil {
			continue
		}
		pr, ok := byNumber[*issue.FirstLinkedPR]
		if !ok {
			continue
		}
		if pr.CreatedAt.Before(issue.CreatedAt) {
			continue
		}
		samples = append(samples, timeutils.HoursBetween(issue.CreatedAt, pr.CreatedAt))
	}

	return CodingTimeMetrics{MeasuredIssues: len(samples), Stats: Summarize(samples)}
}
