package pullrequests

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/ip-san/devsync/github/client"
	"github.com/ip-san/devsync/trace"
)

type refNode struct {
	Number      githubv4.Int
	BaseRefName githubv4.String
	HeadRefName githubv4.String
	MergedAt    githubv4.DateTime
	MergeCommit struct {
		Oid githubv4.String
	}
}

func toRef(node refNode) trace.PRRef {
	ref := trace.PRRef{
		Number:         int(node.Number),
		BaseBranch:     string(node.BaseRefName),
		HeadBranch:     string(node.HeadRefName),
		MergeCommitSHA: string(node.MergeCommit.Oid),
	}
	if !node.MergedAt.IsZero() {
		mergedAt := node.MergedAt.Time
		ref.MergedAt = &mergedAt
	}
	return ref
}

// Find fetches the chain hop data for a single pull request.
func Find(ctx context.Context, gh client.GraphQL, repo string, number int) (trace.PRRef, error) {
	owner, name, err := client.SplitRepo(repo)
	if err != nil {
		return trace.PRRef{}, err
	}

	var q struct {
		Repository struct {
			PullRequest refNode `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(name: $name, owner: $owner)"`
	}
	variables := map[string]any{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(name),
		"number": githubv4.Int(number),
	}

	if err := gh.Query(ctx, &q, variables); err != nil {
		return trace.PRRef{}, fmt.Errorf("pull request %s#%d: %w", repo, number, err)
	}
	return toRef(q.Repository.PullRequest), nil
}

// Containing returns the pull requests associated with a commit, in
// upstream order, excluding the pull request whose own merge created it.
func Containing(ctx context.Context, gh client.GraphQL, repo, sha string) ([]trace.PRRef, error) {
	owner, name, err := client.SplitRepo(repo)
	if err != nil {
		return nil, err
	}

	var q struct {
		Repository struct {
			Object struct {
				Commit struct {
					AssociatedPullRequests struct {
						Nodes []refNode
					} `graphql:"associatedPullRequests(first: 10)"`
				} `graphql:"... on Commit"`
			} `graphql:"object(oid: $oid)"`
		} `graphql:"repository(name: $name, owner: $owner)"`
	}
	variables := map[string]any{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
		"oid":   githubv4.GitObjectID(sha),
	}

	if err := gh.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("pull requests containing %s in %s: %w", sha, repo, err)
	}

	var refs []trace.PRRef
	for _, node := range q.Repository.Object.Commit.AssociatedPullRequests.Nodes {
		if string(node.MergeCommit.Oid) == sha {
			continue
		}
		refs = append(refs, toRef(node))
	}
	return refs, nil
}

// Source adapts the GraphQL client to trace.Source for live tracing.
type Source struct {
	gh client.GraphQL
}

func NewSource(gh client.GraphQL) *Source {
	return &Source{gh: gh}
}

func (s *Source) PullRequest(ctx context.Context, repo string, number int) (trace.PRRef, error) {
	return Find(ctx, s.gh, repo, number)
}

func (s *Source) ContainingPulls(ctx context.Context, repo, sha string) ([]trace.PRRef, error) {
	return Containing(ctx, s.gh, repo, sha)
}
