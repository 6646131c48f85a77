// The report command computes delivery metrics from the snapshot store and
// writes them to stdout as JSON, to Slack, or both. Logs go to stderr so
// stdout stays parseable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/ip-san/devsync/config"
	"github.com/ip-san/devsync/record"
	"github.com/ip-san/devsync/report"
	"github.com/ip-san/devsync/slack"
	"github.com/ip-san/devsync/store"
)

func logger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func main() {
	days := flag.Int("days", 0, "period length in days, 0 uses the configured default")
	toSlack := flag.Bool("slack", false, "post the digest to the configured Slack channel")
	toJSON := flag.Bool("json", true, "write the full report to stdout as JSON")
	flag.Parse()

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
	db, err := store.New(ctx, env.PostgresDSN(), l)
	if err != nil {
		l.Error("can't connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *days <= 0 {
		*days = rules.PeriodDays
	}
	period := record.LastDays(time.Now().UTC(), *days)

	rep, err := report.NewBuilder(db, rules, l).Build(ctx, rules.Repositories, period)
	if err != nil {
		l.Error("can't build report", "period", period, "error", err)
		os.Exit(1)
	}

	if *toJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			l.Error("can't encode report", "error", err)
			os.Exit(1)
		}
	}

	if *toSlack {
		sc, err := slack.NewClient(env.SlackToken, env.SlackChannel, l)
		if err != nil {
			l.Error("slack is not configured", "error", err)
			os.Exit(1)
		}
		if err := sc.PostReport(ctx, rep); err != nil {
			l.Error("can't post report to slack", "error", err)
			os.Exit(1)
		}
	}
}
