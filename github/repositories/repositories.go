// Package repositories discovers an organization's repositories for
// collection runs.
package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shurcooL/githubv4"

	"github.com/ip-san/devsync/github/client"
)

// List returns the organization's unarchived repositories as owner/name
// strings, the form the rest of the pipeline keys on.
func List(ctx context.Context, gh client.GraphQL, org string, logger *slog.Logger) ([]string, error) {
	var q struct {
		Organization struct {
			Repositories struct {
				Nodes []struct {
					Name  githubv4.String
					Owner struct {
						Login githubv4.String
					}
				}
				PageInfo struct {
					HasNextPage githubv4.Boolean
					EndCursor   githubv4.String
				}
			} `graphql:"repositories(first: 100, isArchived: false, after: $after)"`
		} `graphql:"organization(login: $org)"`
	}

	variables := map[string]any{
		"org":   githubv4.String(org),
		"after": (*githubv4.String)(nil),
	}

	var repos []string
	pages := 0
	for {
		if err := gh.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("list repositories for %s: %w", org, err)
		}

		for _, node := range q.Organization.Repositories.Nodes {
			repos = append(repos, fmt.Sprintf("%s/%s", node.Owner.Login, node.Name))
		}

		pages++
		if !bool(q.Organization.Repositories.PageInfo.HasNextPage) || pages >= client.MaxPages {
			break
		}
		variables["after"] = githubv4.NewString(q.Organization.Repositories.PageInfo.EndCursor)
	}

	logger.Debug("discovered repositories", "organization", org, "count", len(repos))
	return repos, nil
}
