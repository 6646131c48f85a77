package trace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

var baseTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type stubSource struct {
	pulls      map[int]PRRef
	containing map[string][]PRRef
	pullErr    error
	containErr error
}

func (s *stubSource) PullRequest(_ context.Context, _ string, number int) (PRRef, error) {
	if s.pullErr != nil {
		return PRRef{}, s.pullErr
	}
	ref, ok := s.pulls[number]
	if !ok {
		return PRRef{}, errors.New("pull request not found")
	}
	return ref, nil
}

func (s *stubSource) ContainingPulls(_ context.Context, _, sha string) ([]PRRef, error) {
	if s.containErr != nil {
		return nil, s.containErr
	}
	return s.containing[sha], nil
}

func mergedRef(number int, head, base, sha string, mergedAt time.Time) PRRef {
	return PRRef{Number: number, HeadBranch: head, BaseBranch: base, MergeCommitSHA: sha, MergedAt: &mergedAt}
}

func newTestTracer(source Source, maxDepth int) *Tracer {
	isProduction := func(branch string) bool { return branch == "production" }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTracer(source, isProduction, maxDepth, logger)
}

func TestTraceDirectProductionMerge(t *testing.T) {
	source := &stubSource{pulls: map[int]PRRef{
		10: mergedRef(10, "feature", "production", "abc", baseTime),
	}}

	result, err := newTestTracer(source, 0).Trace(context.Background(), "acme/api", 10)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Resolved() {
		t.Fatal("expected a resolved chain")
	}
	if !result.ProductionMergedAt.Equal(baseTime) {
		t.Errorf("ProductionMergedAt = %v, want %v", result.ProductionMergedAt, baseTime)
	}
	if len(result.Chain) != 1 {
		t.Errorf("chain length = %d, want 1", len(result.Chain))
	}
}

func TestTraceUnmergedPullRequest(t *testing.T) {
	source := &stubSource{pulls: map[int]PRRef{
		10: {Number: 10, HeadBranch: "feature", BaseBranch: "main"},
	}}

	result, err := newTestTracer(source, 0).Trace(context.Background(), "acme/api", 10)
	if err != nil {
		t.Fatal(err)
	}
	if result.Resolved() {
		t.Fatal("unmerged pull request must not resolve")
	}
	if len(result.Chain) != 1 {
		t.Fatalf("chain length = %d, want 1", len(result.Chain))
	}
	if !result.Chain[0].MergedAt.IsZero() {
		t.Errorf("unmerged hop should carry a zero merge time, got %v", result.Chain[0].MergedAt)
	}
}

func TestTraceThreeHopChain(t *testing.T) {
	mainMerge := baseTime
	stagingMerge := baseTime.Add(2 * time.Hour)
	prodMerge := baseTime.Add(26 * time.Hour)

	source := &stubSource{
		pulls: map[int]PRRef{
			10: mergedRef(10, "feature", "main", "sha-main", mainMerge),
		},
		containing: map[string][]PRRef{
			"sha-main":    {mergedRef(20, "main", "staging", "sha-staging", stagingMerge)},
			"sha-staging": {mergedRef(30, "staging", "production", "sha-prod", prodMerge)},
		},
	}

	result, err := newTestTracer(source, 0).Trace(context.Background(), "acme/api", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(result.Chain))
	}
	if !result.Resolved() || !result.ProductionMergedAt.Equal(prodMerge) {
		t.Errorf("ProductionMergedAt = %v, want %v", result.ProductionMergedAt, prodMerge)
	}
	if got := ChainString(result.Chain); got != "#10→#20→#30" {
		t.Errorf("ChainString() = %q", got)
	}
}

func TestTraceNoContainingPull(t *testing.T) {
	source := &stubSource{pulls: map[int]PRRef{
		10: mergedRef(10, "feature", "main", "sha-main", baseTime),
	}}

	result, err := newTestTracer(source, 0).Trace(context.Background(), "acme/api", 10)
	if err != nil {
		t.Fatal(err)
	}
	if result.Resolved() {
		t.Fatal("chain with no containing pull must stay unresolved")
	}
	if len(result.Chain) != 1 {
		t.Errorf("chain length = %d, want 1", len(result.Chain))
	}
}

func TestTraceDepthCap(t *testing.T) {
	// Every hop leads to another non-production merge.
	source := &stubSource{
		pulls: map[int]PRRef{
			10: mergedRef(10, "feature", "dev", "sha-0", baseTime),
		},
		containing: map[string][]PRRef{
			"sha-0": {mergedRef(11, "dev", "integration", "sha-1", baseTime.Add(time.Hour))},
			"sha-1": {mergedRef(12, "integration", "dev", "sha-0", baseTime.Add(4 * time.Hour))},
		},
	}

	result, err := newTestTracer(source, 3).Trace(context.Background(), "acme/api", 10)
	if err != nil {
		t.Fatal(err)
	}
	if result.Resolved() {
		t.Fatal("capped chain must stay unresolved")
	}
	if len(result.Chain) != 3 {
		t.Errorf("chain length = %d, want cap of 3", len(result.Chain))
	}
}

func TestTraceFirstMatchWins(t *testing.T) {
	prodMerge := baseTime.Add(3 * time.Hour)
	source := &stubSource{
		pulls: map[int]PRRef{
			10: mergedRef(10, "feature", "main", "sha-main", baseTime),
		},
		containing: map[string][]PRRef{
			"sha-main": {
				mergedRef(20, "main", "production", "sha-prod", prodMerge),
				mergedRef(21, "main", "hotfix", "sha-hotfix", prodMerge.Add(time.Hour)),
			},
		},
	}

	result, err := newTestTracer(source, 0).Trace(context.Background(), "acme/api", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Chain) != 2 || result.Chain[1].Number != 20 {
		t.Fatalf("expected the first candidate to be followed, chain %s", ChainString(result.Chain))
	}
	if !result.Resolved() || !result.ProductionMergedAt.Equal(prodMerge) {
		t.Errorf("ProductionMergedAt = %v, want %v", result.ProductionMergedAt, prodMerge)
	}
}

func TestTraceSourceErrors(t *testing.T) {
	lookupErr := errors.New("api unreachable")

	t.Run("pull request lookup", func(t *testing.T) {
		source := &stubSource{pullErr: lookupErr}
		_, err := newTestTracer(source, 0).Trace(context.Background(), "acme/api", 10)
		if !errors.Is(err, lookupErr) {
			t.Errorf("expected lookup error to propagate, got %v", err)
		}
	})

	t.Run("containing pulls lookup", func(t *testing.T) {
		source := &stubSource{
			pulls:      map[int]PRRef{10: mergedRef(10, "feature", "main", "sha-main", baseTime)},
			containErr: lookupErr,
		}
		_, err := newTestTracer(source, 0).Trace(context.Background(), "acme/api", 10)
		if !errors.Is(err, lookupErr) {
			t.Errorf("expected lookup error to propagate, got %v", err)
		}
	})
}

func TestTraceMergedWithoutMergeCommit(t *testing.T) {
	source := &stubSource{pulls: map[int]PRRef{
		10: {Number: 10, HeadBranch: "feature", BaseBranch: "main", MergedAt: &baseTime},
	}}

	result, err := newTestTracer(source, 0).Trace(context.Background(), "acme/api", 10)
	if err != nil {
		t.Fatal(err)
	}
	if result.Resolved() || len(result.Chain) != 1 {
		t.Errorf("expected unresolved single-hop chain, got resolved=%v len=%d", result.Resolved(), len(result.Chain))
	}
}

func TestChainString(t *testing.T) {
	if got := ChainString(nil); got != "" {
		t.Errorf("ChainString(nil) = %q, want empty", got)
	}
	chain := []Hop{{Number: 10}, {Number: 20}, {Number: 30}}
	if got := ChainString(chain); got != "#10→#20→#30" {
		t.Errorf("ChainString() = %q", got)
	}
}
