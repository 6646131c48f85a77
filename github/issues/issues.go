// Package issues fetches planning issues over GraphQL and resolves the
// first pull request that referenced each one.
package issues

import (
	"context"
	"log/slog"
	"time"

	"github.com/shurcooL/githubv4"

	"github.com/ip-san/devsync/github/client"
	"github.com/ip-san/devsync/record"
)

type issueNode struct {
	Number        githubv4.Int
	Title         githubv4.String
	CreatedAt     githubv4.DateTime
	ClosedAt      githubv4.DateTime
	TimelineItems struct {
		Nodes []struct {
			CrossReferencedEvent struct {
				Source struct {
					PullRequest struct {
						Number githubv4.Int
					} `graphql:"... on PullRequest"`
				}
			} `graphql:"... on CrossReferencedEvent"`
		}
	} `graphql:"timelineItems(itemTypes: CROSS_REFERENCED_EVENT, first: 20)"`
}

// Get fetches issues created since the watermark, newest first. Each issue
// carries the number of the first pull request that referenced it, the anchor
// for cycle-time measurement. Transient query errors are retried three times.
func Get(ctx context.Context, gh client.GraphQL, repo string, since time.Time, logger *slog.Logger) ([]record.Issue, error) {
	owner, name, err := client.SplitRepo(repo)
	if err != nil {
		return nil, err
	}

	var q struct {
		Repository struct {
			Issues struct {
				Nodes    []issueNode
				PageInfo struct {
					HasNextPage githubv4.Boolean
					EndCursor   githubv4.String
				}
			} `graphql:"issues(first: 50, orderBy: {field: CREATED_AT, direction: DESC}, states: [OPEN, CLOSED], after: $after)"`
		} `graphql:"repository(name: $name, owner: $owner)"`
	}

	variables := map[string]any{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
		"after": (*githubv4.String)(nil),
	}
	logger.Debug("fetching issues", "repository", repo, "since", since)

	var results []record.Issue
	retries := 3
	pages := 0
	for {
		if err := gh.Query(ctx, &q, variables); err != nil {
			if retries > 0 {
				logger.Debug("retrying issue query", "repository", repo, "retries", retries, "error", err)
				retries--
				continue
			}
			return nil, err
		}

		nodes := q.Repository.Issues.Nodes
		for _, node := range nodes {
			results = append(results, toRecord(repo, node))
		}

		pages++
		reachedWatermark := len(nodes) > 0 && nodes[len(nodes)-1].CreatedAt.Before(since)
		if reachedWatermark || pages >= client.MaxPages || !bool(q.Repository.Issues.PageInfo.HasNextPage) {
			break
		}
		variables["after"] = githubv4.NewString(q.Repository.Issues.PageInfo.EndCursor)
	}

	logger.Debug("fetched issues", "repository", repo, "count", len(results))
	return results, nil
}

func toRecord(repo string, node issueNode) record.Issue {
	issue := record.Issue{
		Number:     int(node.Number),
		Title:      string(node.Title),
		CreatedAt:  node.CreatedAt.Time,
		Repository: repo,
	}
	if !node.ClosedAt.IsZero() {
		closedAt := node.ClosedAt.Time
		issue.ClosedAt = &closedAt
	}

	// Timeline items arrive in chronological order. Cross references from
	// other issues leave the pull request number at zero and are skipped.
	for _, item := range node.TimelineItems.Nodes {
		if n := int(item.CrossReferencedEvent.Source.PullRequest.Number); n > 0 {
			linked := n
			issue.FirstLinkedPR = &linked
			break
		}
	}
	return issue
}
