// Package workflows fetches GitHub Actions workflow runs over REST.
package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-github/v39/github"

	"github.com/ip-san/devsync/github/client"
	"github.com/ip-san/devsync/record"
)

// Service is the slice of the REST actions API the fetcher needs.
// *github.ActionsService satisfies it.
type Service interface {
	ListRepositoryWorkflowRuns(ctx context.Context, owner, repo string, opts *github.ListWorkflowRunsOptions) (*github.WorkflowRuns, *github.Response, error)
}

// Get fetches workflow runs created since the watermark. The API lists
// runs newest first, so paging stops at the first run older than the
// watermark.
func Get(ctx context.Context, svc Service, repo string, since time.Time, logger *slog.Logger) ([]record.WorkflowRun, error) {
	owner, name, err := client.SplitRepo(repo)
	if err != nil {
		return nil, err
	}
	logger.Debug("fetching workflow runs", "repository", repo, "since", since)

	opts := &github.ListWorkflowRunsOptions{ListOptions: github.ListOptions{PerPage: 100}}

	var results []record.WorkflowRun
	pages := 0
	for {
		runs, resp, err := svc.ListRepositoryWorkflowRuns(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("list workflow runs for %s: %w", repo, err)
		}

		reachedWatermark := false
		for _, run := range runs.WorkflowRuns {
			if run.GetCreatedAt().Time.Before(since) {
				reachedWatermark = true
				break
			}
			results = append(results, fromRun(repo, run))
		}

		pages++
		if reachedWatermark || resp.NextPage == 0 || pages >= client.MaxPages {
			break
		}
		opts.Page = resp.NextPage
	}

	logger.Debug("fetched workflow runs", "repository", repo, "count", len(results))
	return results, nil
}

func fromRun(repo string, run *github.WorkflowRun) record.WorkflowRun {
	return record.WorkflowRun{
		ID:         run.GetID(),
		Name:       run.GetName(),
		Status:     run.GetStatus(),
		Conclusion: run.GetConclusion(),
		CreatedAt:  run.GetCreatedAt().Time,
		Repository: repo,
	}
}
