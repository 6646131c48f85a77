// Package client constructs the two GitHub API surfaces devsync talks to:
// GraphQL for pull request and issue detail, REST for deployments, workflow
// runs and labeled issues. Both share one authenticated transport, built
// from either a personal access token or GitHub App credentials.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/go-github/v39/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/ip-san/devsync/config"
	"github.com/ip-san/devsync/github/appauth"
)

// MaxPages caps every paginated fetch per repository.
const MaxPages = 50

// GraphQL is the slice of the githubv4 client the fetchers use, kept
// narrow so tests can substitute a mock.
type GraphQL interface {
	Query(ctx context.Context, q any, variables map[string]any) error
}

// Clients bundles the GraphQL and REST clients over one token source.
type Clients struct {
	GraphQL GraphQL
	REST    *github.Client
}

// New authenticates against GitHub from the environment. App credentials
// win over a plain token when both are configured.
func New(ctx context.Context, env *config.Env) (*Clients, error) {
	var source oauth2.TokenSource
	switch {
	case env.UseGitHubApp():
		pem, err := os.ReadFile(env.GitHubPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read GitHub App private key: %w", err)
		}
		source, err = appauth.TokenSource(ctx, env.GitHubAppID, env.GitHubInstallationID, pem)
		if err != nil {
			return nil, err
		}
	case env.GitHubToken != "":
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: env.GitHubToken})
	default:
		return nil, errors.New("no GitHub credentials configured: set GITHUB_TOKEN or the GITHUB_APP_* variables")
	}

	httpClient := oauth2.NewClient(ctx, source)
	return &Clients{
		GraphQL: githubv4.NewClient(httpClient),
		REST:    github.NewClient(httpClient),
	}, nil
}

// SplitRepo splits an owner/name repository string.
func SplitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("repository %q is not in owner/name form", repo)
	}
	return owner, name, nil
}
