package metrics

import (
	"testing"
	"time"

	"github.com/ip-san/devsync/record"
	"github.com/ip-san/devsync/trace"
)

func TestCycleTimes(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	prodAt := t0.Add(30 * time.Hour)

	issues := []record.Issue{
		{Number: 1, CreatedAt: t0, FirstLinkedPR: intPtr(10)},
		{Number: 2, CreatedAt: t0, FirstLinkedPR: intPtr(11)},
		{Number: 3, CreatedAt: t0}, // never traced
	}
	results := map[int]trace.Result{
		1: {
			ProductionMergedAt: &prodAt,
			Chain: []trace.Hop{
				{Number: 10, HeadBranch: "feature", BaseBranch: "main", MergedAt: t0.Add(2 * time.Hour)},
				{Number: 20, HeadBranch: "main", BaseBranch: "production", MergedAt: prodAt},
			},
		},
		2: {
			Chain: []trace.Hop{{Number: 11, HeadBranch: "feature", BaseBranch: "main", MergedAt: t0.Add(time.Hour)}},
		},
	}

	ct := CycleTimes(issues, results)
	if len(ct.Issues) != 2 {
		t.Fatalf("len(Issues) = %d, want 2 (untraced issue skipped)", len(ct.Issues))
	}

	resolved := ct.Issues[0]
	wantFloat(t, "CycleTimeHours", resolved.CycleTimeHours, 30.0)
	if resolved.Chain != "#10→#20" {
		t.Errorf("Chain = %q, want %q", resolved.Chain, "#10→#20")
	}

	unresolved := ct.Issues[1]
	if unresolved.CycleTimeHours != nil || unresolved.ProductionMergedAt != nil {
		t.Errorf("unresolved issue must carry no cycle time: %+v", unresolved)
	}
	if unresolved.Chain != "#11" {
		t.Errorf("Chain = %q, want %q", unresolved.Chain, "#11")
	}

	// The aggregate covers resolved issues only.
	wantFloat(t, "Stats.Avg", ct.Stats.Avg, 30.0)
	wantFloat(t, "Stats.Max", ct.Stats.Max, 30.0)
}

func TestCycleTimesNothingResolved(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	issues := []record.Issue{{Number: 1, CreatedAt: t0}}
	results := map[int]trace.Result{
		1: {Chain: []trace.Hop{{Number: 10, BaseBranch: "main"}}},
	}

	ct := CycleTimes(issues, results)
	if len(ct.Issues) != 1 {
		t.Fatalf("len(Issues) = %d, want 1", len(ct.Issues))
	}
	wantNil(t, "Stats.Avg", ct.Stats.Avg)
}

func TestCodingTimes(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	issues := []record.Issue{
		{Number: 1, CreatedAt: t0, FirstLinkedPR: intPtr(10)},
		{Number: 2, CreatedAt: t0, FirstLinkedPR: intPtr(11)}, // PR predates the issue
		{Number: 3, CreatedAt: t0},                            // no linked PR
		{Number: 4, CreatedAt: t0, FirstLinkedPR: intPtr(99)}, // PR not fetched
	}
	prs := []record.PullRequest{
		{Number: 10, CreatedAt: t0.Add(5 * time.Hour)},
		{Number: 11, CreatedAt: t0.Add(-time.Hour)},
	}

	ct := CodingTimes(issues, prs)
	if ct.MeasuredIssues != 1 {
		t.Fatalf("MeasuredIssues = %d, want 1", ct.MeasuredIssues)
	}
	wantFloat(t, "Stats.Avg", ct.Stats.Avg, 5.0)
}

func TestCodingTimesEmpty(t *testing.T) {
	ct := CodingTimes(nil, nil)
	if ct.MeasuredIssues != 0 {
		t.Errorf("MeasuredIssues = %d, want 0", ct.MeasuredIssues)
	}
	wantNil(t, "Stats.Avg", ct.Stats.Avg)
}
