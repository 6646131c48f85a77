// The collector fetches pull requests, deployments, workflow runs,
// incidents and issues for every configured repository and upserts them
// into the snapshot store. It is one-shot and meant to run on a schedule.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ip-san/devsync/config"
	"github.com/ip-san/devsync/github/client"
	"github.com/ip-san/devsync/github/deployments"
	"github.com/ip-san/devsync/github/incidents"
	"github.com/ip-san/devsync/github/issues"
	"github.com/ip-san/devsync/github/pullrequests"
	"github.com/ip-san/devsync/github/repositories"
	"github.com/ip-san/devsync/github/workflows"
	"github.com/ip-san/devsync/store"
)

func logger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("can't load environment", "error", err)
		os.Exit(1)
	}
	l := logger(env.Debug)

	rules, err := config.LoadRules(env.RulesPath)
	if err != nil {
		l.Error("can't load rules", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if err := store.Migrate(env.PostgresDSN(), l); err != nil {
		l.Error("can't migrate database", "error", err)
		os.Exit(1)
	}
	db, err := store.New(ctx, env.PostgresDSN(), l)
	if err != nil {
		l.Error("can't connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	gh, err := client.New(ctx, env)
	if err != nil {
		l.Error("can't authenticate against GitHub", "error", err)
		os.Exit(1)
	}

	repos := rules.Repositories
	if len(repos) == 0 {
		repos, err = repositories.List(ctx, gh.GraphQL, rules.Organization, l)
		if err != nil {
			l.Error("can't discover repositories", "org", rules.Organization, "error", err)
			os.Exit(1)
		}
	}

	max := len(repos)
	for i, repo := range repos {
		since := db.LastPullRequestUpdate(ctx, repo)
		l.Info(fmt.Sprintf("collecting [%d/%d]", i+1, max), "repo", repo, "since", since)
		if err := collect(ctx, gh, db, rules, repo, since, l); err != nil {
			l.Error("collection failed", "repo", repo, "error", err)
			os.Exit(1)
		}
	}
	l.Info("collection finished", "repositories", max)
}

func collect(ctx context.Context, gh *client.Clients, db store.Store, rules *config.Rules, repo string, since time.Time, l *slog.Logger) error {
	prs, err := pullrequests.Get(ctx, gh.GraphQL, repo, since, l)
	if err != nil {
		return fmt.Errorf("fetch pull requests: %w", err)
	}
	if err := db.SavePullRequests(ctx, prs); err != nil {
		return fmt.Errorf("save pull requests: %w", err)
	}

	deps, err := deployments.Get(ctx, gh.REST.Repositories, repo, since, l)
	if err != nil {
		return fmt.Errorf("fetch deployments: %w", err)
	}
	if err := db.SaveDeployments(ctx, deps); err != nil {
		return fmt.Errorf("save deployments: %w", err)
	}

	runs, err := workflows.Get(ctx, gh.REST.Actions, repo, since, l)
	if err != nil {
		return fmt.Errorf("fetch workflow runs: %w", err)
	}
	if err := db.SaveWorkflowRuns(ctx, runs); err != nil {
		return fmt.Errorf("save workflow runs: %w", err)
	}

	incs, err := incidents.Get(ctx, gh.REST.Issues, repo, rules.IncidentLabels, since, l)
	if err != nil {
		return fmt.Errorf("fetch incidents: %w", err)
	}
	if err := db.SaveIncidents(ctx, incs); err != nil {
		return fmt.Errorf("save incidents: %w", err)
	}

	iss, err := issues.Get(ctx, gh.GraphQL, repo, since, l)
	if err != nil {
		return fmt.Errorf("fetch issues: %w", err)
	}
	if err := db.SaveIssues(ctx, iss); err != nil {
		return fmt.Errorf("save issues: %w", err)
	}

	return nil
}
