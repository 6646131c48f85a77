// Package incidents fetches incident issues over REST, selected by label.
package incidents

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/go-github/v39/github"

	"github.com/ip-san/devsync/github/client"
	"github.com/ip-san/devsync/record"
)

// Service is the slice of the REST issues API the fetcher needs.
// *github.IssuesService satisfies it.
type Service interface {
	ListByRepo(ctx context.Context, owner string, repo string, opts *github.IssueListByRepoOptions) ([]*github.Issue, *github.Response, error)
}

// Get fetches open and closed issues carrying any of the incident labels.
// The REST API treats multiple labels in one request as a conjunction, so
// each label is queried on its own and the results merged by issue ID.
// Pull requests surfacing through the issues API are skipped.
func Get(ctx context.Context, svc Service, repo string, labels []string, since time.Time, logger *slog.Logger) ([]record.Incident, error) {
	owner, name, err := client.SplitRepo(repo)
	if err != nil {
		return nil, err
	}
	logger.Debug("fetching incidents", "repository", repo, "labels", labels, "since", since)

	seen := map[int64]bool{}
	var results []record.Incident
	for _, label := range labels {
		opts := &github.IssueListByRepoOptions{
			State:       "all",
			Labels:      []string{label},
			Since:       since,
			ListOptions: github.ListOptions{PerPage: 100},
		}

		pages := 0
		for {
			issues, resp, err := svc.ListByRepo(ctx, owner, name, opts)
			if err != nil {
				return nil, fmt.Errorf("list incidents for %s label %q: %w", repo, label, err)
			}

			for _, issue := range issues {
				if issue.IsPullRequest() || seen[issue.GetID()] {
					continue
				}
				seen[issue.GetID()] = true
				results = append(results, fromIssue(repo, issue))
			}

			pages++
			if resp.NextPage == 0 || pages >= client.MaxPages {
				break
			}
			opts.Page = resp.NextPage
		}
	}

	slices.SortFunc(results, func(a, b record.Incident) int {
		return cmp.Compare(a.Number, b.Number)
	})
	logger.Debug("fetched incidents", "repository", repo, "count", len(results))
	return results, nil
}

func fromIssue(repo string, issue *github.Issue) record.Incident {
	inc := record.Incident{
		ID:         issue.GetID(),
		Number:     issue.GetNumber(),
		Title:      issue.GetTitle(),
		State:      issue.GetState(),
		CreatedAt:  issue.GetCreatedAt(),
		Repository: repo,
	}
	if closedAt := issue.GetClosedAt(); !closedAt.IsZero() {
		inc.ClosedAt = &closedAt
	}
	for _, label := range issue.Labels {
		inc.Labels = append(inc.Labels, label.GetName())
	}
	return inc
}
