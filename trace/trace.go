// Package trace resolves when a pull request's change actually reached a
// production branch. A change often travels through intermediate branches
// (feature into main, main into staging, staging into production), each step
// being its own pull request. The tracer follows that chain hop by hop: it
// looks up which pull request merged the previous hop's merge commit and
// stops once a hop's base branch is a production branch.
package trace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultMaxDepth bounds the chain walk when no explicit depth is configured.
const DefaultMaxDepth = 10

// PRRef is the slice of pull request data the tracer needs for one hop.
type PRRef struct {
	Number         int
	BaseBranch     string
	HeadBranch     string
	MergeCommitSHA string
	MergedAt       *time.Time
}

// Source supplies pull request lookups. Implementations exist over the
// snapshot store and over the live GitHub API.
//
// ContainingPulls returns the pull requests whose merged history contains
// the given commit, in upstream order, excluding the pull request whose own
// merge created the commit. When several pull requests match, the tracer
// follows the first one; the choice is not guaranteed stable across runs and
// can pick the wrong branch in unusual merge topologies.
type Source interface {
	PullRequest(ctx context.Context, repo string, number int) (PRRef, error)
	ContainingPulls(ctx context.Context, repo, sha string) ([]PRRef, error)
}

// Hop is one pull request in a production-merge chain. MergedAt is the zero
// time for an unmerged terminal hop.
type Hop struct {
	Number     int       `json:"pr_number"`
	BaseBranch string    `json:"base_branch"`
	HeadBranch string    `json:"head_branch"`
	MergedAt   time.Time `json:"merged_at"`
}

// Result is the outcome of one trace. ProductionMergedAt is nil when the
// chain never reached a production branch; the chain still records every
// hop that was followed.
type Result struct {
	ProductionMergedAt *time.Time `json:"production_merged_at,omitempty"`
	Chain              []Hop      `json:"pr_chain"`
}

// Resolved reports whether the chain reached a production branch.
func (r Result) Resolved() bool { return r.ProductionMergedAt != nil }

// Tracer walks production-merge chains over a Source.
type Tracer struct {
	source       Source
	isProduction func(string) bool
	maxDepth     int
	logger       *slog.Logger
}

// NewTracer builds a tracer. isProduction decides whether a base branch is a
// production branch; maxDepth bounds the walk and falls back to
// DefaultMaxDepth when not positive.
func NewTracer(source Source, isProduction func(string) bool, maxDepth int, logger *slog.Logger) *Tracer {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return &Tracer{source: source, isProduction: isProduction, maxDepth: maxDepth, logger: logger}
}

// Trace follows the merge chain starting at the given pull request. The walk
// is a bounded loop: per hop it records the pull request, terminates
// unresolved on an unmerged hop, terminates resolved when the hop's base
// branch is a production branch, and otherwise moves to the first pull
// request containing the hop's merge commit. Lookup failures are returned as
// errors; an exhausted chain or depth cap is a normal unresolved result.
func (t *Tracer) Trace(ctx context.Context, repo string, prNumber int) (Result, error) {
	current, err := t.source.PullRequest(ctx, repo, prNumber)
	if err != nil {
		return Result{}, fmt.Errorf("trace %s#%d: %w", repo, prNumber, err)
	}

	var chain []Hop
	for depth := 0; depth < t.maxDepth; depth++ {
		hop := Hop{Number: current.Number, BaseBranch: current.BaseBranch, HeadBranch: current.HeadBranch}
		if current.MergedAt != nil {
			hop.MergedAt = *current.MergedAt
		}
		chain = append(chain, hop)

		if current.MergedAt == nil {
			return Result{Chain: chain}, nil
		}
		if t.isProduction(current.BaseBranch) {
			mergedAt := *current.MergedAt
			return Result{ProductionMergedAt: &mergedAt, Chain: chain}, nil
		}
		if current.MergeCommitSHA == "" {
			return Result{Chain: chain}, nil
		}

		pulls, err := t.source.ContainingPulls(ctx, repo, current.MergeCommitSHA)
		if err != nil {
			return Result{}, fmt.Errorf("trace %s#%d: pulls containing %s: %w", repo, prNumber, current.MergeCommitSHA, err)
		}
		if len(pulls) == 0 {
			return Result{Chain: chain}, nil
		}
		if len(pulls) > 1 {
			t.logger.DebugContext(ctx, "multiple pull requests contain commit, following the first",
				"repository", repo,
				"sha", current.MergeCommitSHA,
				"candidates", len(pulls),
				"following", pulls[0].Number)
		}
		current = pulls[0]
	}

	// Depth cap reached. Merge commits move strictly forward in time so a
	// true cycle cannot occur, but a misconfigured branch graph can still
	// produce an unbounded chain.
	return Result{Chain: chain}, nil
}

// ChainString renders a chain as "#10→#20→#30" for audit display.
func ChainString(chain []Hop) string {
	var b strings.Builder
	for i, hop := range chain {
		if i > 0 {
			b.WriteString("→")
		}
		fmt.Fprintf(&b, "#%d", hop.Number)
	}
	return b.String()
}
