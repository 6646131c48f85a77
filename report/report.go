// Package report assembles the per-repository metrics bundle and the fleet
// rollup consumed by the Slack digest, the HTTP API and the JSON writer.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ip-san/devsync/config"
	"github.com/ip-san/devsync/metrics"
	"github.com/ip-san/devsync/record"
	"github.com/ip-san/devsync/store"
	"github.com/ip-san/devsync/trace"
)

// RepositoryReport bundles every metric family for one repository.
type RepositoryReport struct {
	Repository string                          `json:"repository"`
	DevOps     metrics.DevOpsMetrics           `json:"devops"`
	CycleTime  metrics.CycleTimeMetrics        `json:"cycle_time"`
	CodingTime metrics.CodingTimeMetrics       `json:"coding_time"`
	Rework     metrics.ReworkRateMetrics       `json:"rework"`
	Review     metrics.ReviewEfficiencyMetrics `json:"review_efficiency"`
	PRSize     metrics.PRSizeMetrics           `json:"pr_size"`
}

// Report is the complete output of one reporting run.
type Report struct {
	GeneratedAt  time.Time                 `json:"generated_at"`
	Period       record.Period             `json:"period"`
	Repositories []RepositoryReport        `json:"repositories"`
	Fleet        metrics.AggregatedSummary `json:"fleet"`
}

// Builder loads snapshots, computes every metric family per repository and
// rolls up the fleet summary. Metrics are recomputed on every build; nothing
// here is cached.
type Builder struct {
	store      store.Store
	source     trace.Source
	calculator *metrics.Calculator
	rules      *config.Rules
	logger     *slog.Logger
}

func NewBuilder(st store.Store, rules *config.Rules, logger *slog.Logger) *Builder {
	return &Builder{
		store:      st,
		source:     st.TraceSource(),
		calculator: metrics.NewCalculator(rules.CalculatorOptions()),
		rules:      rules,
		logger:     logger,
	}
}

// Build computes the report for the given repositories. When repos is empty
// the repositories present in the snapshot store are used.
func (b *Builder) Build(ctx context.Context, repos []string, period record.Period) (*Report, error) {
	if len(repos) == 0 {
		stored, err := b.store.Repositories(ctx)
		if err != nil {
			return nil, err
		}
		repos = stored
	}

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Period:      period,
	}
	perRepo := make(map[string][]metrics.DevOpsMetrics, len(repos))

	for _, repo := range repos {
		repoReport, err := b.buildRepository(ctx, repo, period)
		if err != nil {
			return nil, fmt.Errorf("report for %s: %w", repo, err)
		}
		report.Repositories = append(report.Repositories, repoReport)
		perRepo[repo] = []metrics.DevOpsMetrics{repoReport.DevOps}
	}

	report.Fleet = metrics.Aggregate(perRepo)
	return report, nil
}

func (b *Builder) buildRepository(ctx context.Context, repo string, period record.Period) (RepositoryReport, error) {
	prs, err := b.store.PullRequests(ctx, repo, period)
	if err != nil {
		return RepositoryReport{}, err
	}
	deployments, err := b.store.Deployments(ctx, repo, period)
	if err != nil {
		return RepositoryReport{}, err
	}
	runs, err := b.store.WorkflowRuns(ctx, repo, period)
	if err != nil {
		return RepositoryReport{}, err
	}
	incidents, err := b.store.Incidents(ctx, repo, period)
	if err != nil {
		return RepositoryReport{}, err
	}
	issues, err := b.store.Issues(ctx, repo, period)
	if err != nil {
		return RepositoryReport{}, err
	}

	traces, err := b.traceIssues(ctx, repo, issues)
	if err != nil {
		return RepositoryReport{}, err
	}

	input := metrics.Input{
		PullRequests: prs,
		Deployments:  deployments,
		WorkflowRuns: runs,
		Incidents:    incidents,
	}

	b.logger.Debug("computed repository report",
		"repository", repo,
		"pull_requests", len(prs),
		"deployments", len(deployments),
		"workflow_runs", len(runs),
		"incidents", len(incidents),
		"issues", len(issues))

	return RepositoryReport{
		Repository: repo,
		DevOps:     b.calculator.Repository(repo, input, period),
		CycleTime:  metrics.CycleTimes(issues, traces),
		CodingTime: metrics.CodingTimes(issues, prs),
		Rework:     metrics.ReworkRate(prs),
		Review:     metrics.ReviewEfficiency(prs),
		PRSize:     metrics.PRSize(prs),
	}, nil
}

// traceIssues resolves the merge chain for every issue with a linked pull
// request. A linked pull request missing from the snapshot leaves the issue
// untraced; any other source failure aborts the build.
func (b *Builder) traceIssues(ctx context.Context, repo string, issues []record.Issue) (map[int]trace.Result, error) {
	tracer := trace.NewTracer(b.source, b.rules.IsProductionBranch, b.rules.MaxChainDepth, b.logger)

	results := make(map[int]trace.Result)
	for _, issue := range issues {
		if issue.FirstLinkedPR == nil {
			continue
		}
		result, err := tracer.Trace(ctx, repo, *issue.FirstLinkedPR)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				b.logger.Debug("linked pull request not in snapshot",
					"repository", repo, "issue", issue.Number, "pull_request", *issue.FirstLinkedPR)
				continue
			}
			return nil, err
		}
		results[issue.Number] = result
	}
	return results, nil
}
