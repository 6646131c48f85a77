// Package pullrequests fetches pull requests over GraphQL and normalizes
// them into records. It also serves as the live trace source: single pull
// request lookups and "which pull requests contain this commit" queries.
package pullrequests

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shurcooL/githubv4"

	"github.com/ip-san/devsync/github/client"
	"github.com/ip-san/devsync/record"
)

type prNode struct {
	Number       githubv4.Int
	Title        githubv4.String
	State        githubv4.String
	CreatedAt    githubv4.DateTime
	MergedAt     githubv4.DateTime
	ClosedAt     githubv4.DateTime
	Additions    githubv4.Int
	Deletions    githubv4.Int
	ChangedFiles githubv4.Int
	BaseRefName  githubv4.String
	HeadRefName  githubv4.String
	MergeCommit  struct {
		Oid githubv4.String
	}
	Author struct {
		Login githubv4.String
	}
	Commits struct {
		Nodes []struct {
			Commit struct {
				Oid           githubv4.String
				CommittedDate githubv4.DateTime
			}
		}
	} `graphql:"commits(first: 100)"`
	Reviews struct {
		Nodes []struct {
			Author struct {
				Login githubv4.String
			}
			State       githubv4.String
			SubmittedAt githubv4.DateTime
		}
	} `graphql:"reviews(first: 50)"`
	TimelineItems struct {
		TotalCount githubv4.Int
	} `graphql:"timelineItems(itemTypes: HEAD_REF_FORCE_PUSHED_EVENT, first: 1)"`
}

// Get fetches the repository's pull requests created since the watermark,
// newest first, walking pages until the watermark or the page ceiling is
// reached. Transient query errors are retried three times.
func Get(ctx context.Context, gh client.GraphQL, repo string, since time.Time, logger *slog.Logger) ([]record.PullRequest, error) {
	owner, name, err := client.SplitRepo(repo)
	if err != nil {
		return nil, err
	}

	var q struct {
		Repository struct {
			PullRequests struct {
				Nodes    []prNode
				PageInfo struct {
					HasNextPage githubv4.Boolean
					EndCursor   githubv4.String
				}
			} `graphql:"pullRequests(first: 30, orderBy: {field: CREATED_AT, direction: DESC}, states: [OPEN, CLOSED, MERGED], after: $after)"`
		} `graphql:"repository(name: $name, owner: $owner)"`
	}

	variables := map[string]any{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
		"after": (*githubv4.String)(nil),
	}
	logger.Debug("fetching pull requests", "repository", repo, "since", since)

	var results []record.PullRequest
	retries := 3
	pages := 0
	for {
		if err := gh.Query(ctx, &q, variables); err != nil {
			if retries > 0 {
				logger.Debug("retrying pull request query", "repository", repo, "retries", retries, "error", err)
				retries--
				continue
			}
			return nil, err
		}

		nodes := q.Repository.PullRequests.Nodes
		for _, node := range nodes {
			results = append(results, toRecord(repo, node))
		}

		pages++
		reachedWatermark := len(nodes) > 0 && nodes[len(nodes)-1].CreatedAt.Before(since)
		if reachedWatermark || pages >= client.MaxPages || !bool(q.Repository.PullRequests.PageInfo.HasNextPage) {
			break
		}
		variables["after"] = githubv4.NewString(q.Repository.PullRequests.PageInfo.EndCursor)
	}

	logger.Debug("fetched pull requests", "repository", repo, "count", len(results))
	return results, nil
}

func toRecord(repo string, node prNode) record.PullRequest {
	pr := record.PullRequest{
		Number:         int(node.Number),
		Title:          string(node.Title),
		State:          record.PRClosed,
		Author:         string(node.Author.Login),
		BaseBranch:     string(node.BaseRefName),
		HeadBranch:     string(node.HeadRefName),
		MergeCommitSHA: string(node.MergeCommit.Oid),
		CreatedAt:      node.CreatedAt.Time,
		Additions:      int(node.Additions),
		Deletions:      int(node.Deletions),
		ChangedFiles:   int(node.ChangedFiles),
		ForcePushCount: int(node.TimelineItems.TotalCount),
		Repository:     repo,
	}
	if strings.EqualFold(string(node.State), "OPEN") {
		pr.State = record.PROpen
	}
	if !node.MergedAt.IsZero() {
		mergedAt := node.MergedAt.Time
		pr.MergedAt = &mergedAt
	}
	if !node.ClosedAt.IsZero() {
		closedAt := node.ClosedAt.Time
		pr.ClosedAt = &closedAt
	}

	for _, c := range node.Commits.Nodes {
		pr.Commits = append(pr.Commits, record.Commit{
			SHA:         string(c.Commit.Oid),
			CommittedAt: c.Commit.CommittedDate.Time,
		})
	}

	// Pending reviews and the author's own reviews carry no signal for
	// review timing; both are dropped during normalization.
	for _, r := range node.Reviews.Nodes {
		if strings.EqualFold(string(r.State), "PENDING") {
			continue
		}
		if r.Author.Login == node.Author.Login {
			continue
		}
		pr.Reviews = append(pr.Reviews, record.Review{
			Author:      string(r.Author.Login),
			State:       string(r.State),
			SubmittedAt: r.SubmittedAt.Time,
		})
		if pr.FirstReviewAt == nil || r.SubmittedAt.Before(*pr.FirstReviewAt) {
			submittedAt := r.SubmittedAt.Time
			pr.FirstReviewAt = &submittedAt
		}
	}

	return pr
}
