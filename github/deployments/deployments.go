// Package deployments fetches GitHub deployments over REST together with
// the latest status of each.
package deployments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-github/v39/github"

	"github.com/ip-san/devsync/github/client"
	"github.com/ip-san/devsync/record"
)

// Service is the slice of the REST repositories API the fetcher needs.
// *github.RepositoriesService satisfies it.
type Service interface {
	ListDeployments(ctx context.Context, owner, repo string, opts *github.DeploymentsListOptions) ([]*github.Deployment, *github.Response, error)
	ListDeploymentStatuses(ctx context.Context, owner, repo string, deployment int64, opts *github.ListOptions) ([]*github.DeploymentStatus, *github.Response, error)
}

// Get fetches deployments created since the watermark, newest first, and
// resolves the most recent status of each. A deployment with no statuses
// keeps record.StatusUnknown so downstream filters treat it as absent
// evidence.
func Get(ctx context.Context, svc Service, repo string, since time.Time, logger *slog.Logger) ([]record.Deployment, error) {
	owner, name, err := client.SplitRepo(repo)
	if err != nil {
		return nil, err
	}
	logger.Debug("fetching deployments", "repository", repo, "since", since)

	var results []record.Deployment
	opts := &github.DeploymentsListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	pages := 0
	for {
		deps, resp, err := svc.ListDeployments(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("list deployments for %s: %w", repo, err)
		}

		reachedWatermark := false
		for _, dep := range deps {
			if dep.GetCreatedAt().Time.Before(since) {
				reachedWatermark = true
				break
			}
			status, err := latestStatus(ctx, svc, owner, name, dep.GetID())
			if err != nil {
				return nil, err
			}
			results = append(results, fromDeployment(repo, dep, status))
		}

		pages++
		if reachedWatermark || resp.NextPage == 0 || pages >= client.MaxPages {
			break
		}
		opts.Page = resp.NextPage
	}

	logger.Debug("fetched deployments", "repository", repo, "count", len(results))
	return results, nil
}

// latestStatus returns the newest status of a deployment. The API lists
// statuses newest first, so one element is enough.
func latestStatus(ctx context.Context, svc Service, owner, name string, id int64) (record.DeploymentStatus, error) {
	statuses, _, err := svc.ListDeploymentStatuses(ctx, owner, name, id, &github.ListOptions{PerPage: 1})
	if err != nil {
		return record.StatusUnknown, fmt.Errorf("deployment %d statuses: %w", id, err)
	}
	if len(statuses) == 0 {
		return record.StatusUnknown, nil
	}
	return normalizeStatus(statuses[0].GetState()), nil
}

func normalizeStatus(state string) record.DeploymentStatus {
	switch record.DeploymentStatus(state) {
	case record.StatusSuccess, record.StatusFailure, record.StatusError,
		record.StatusInactive, record.StatusInProgress, record.StatusQueued, record.StatusPending:
		return record.DeploymentStatus(state)
	}
	return record.StatusUnknown
}

func fromDeployment(repo string, dep *github.Deployment, status record.DeploymentStatus) record.Deployment {
	return record.Deployment{
		ID:          dep.GetID(),
		SHA:         dep.GetSHA(),
		Environment: dep.GetEnvironment(),
		CreatedAt:   dep.GetCreatedAt().Time,
		Status:      status,
		Repository:  repo,
	}
}
