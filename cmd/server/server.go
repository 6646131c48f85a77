// The server exposes the snapshot store over a read-only JSON API:
// on-demand reports and production-merge chain traces.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ip-san/devsync/cmd/server/handlers"
	"github.com/ip-san/devsync/config"
	"github.com/ip-san/devsync/github/client"
	"github.com/ip-san/devsync/github/pullrequests"
	"github.com/ip-san/devsync/report"
	"github.com/ip-san/devsync/store"
	"github.com/ip-san/devsync/trace"
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

	builder := report.NewBuilder(db, rules, l)

	// Live tracing is optional; without GitHub credentials the trace
	// endpoint serves snapshots only.
	var live trace.Source
	if gh, err := client.New(ctx, env); err != nil {
		l.Info("live tracing disabled", "reason", err)
	} else {
		live = pullrequests.NewSource(gh.GraphQL)
	}

	r := chi.NewRouter()
	r.Get("/livez", handlers.Livez)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/report", handlers.GetReport(builder, rules, l))
		r.Get("/trace/{owner}/{repo}/{number}", handlers.TraceChain(db.TraceSource(), live, rules, l))
	})

	srv := &http.Server{
		Addr:    ":" + env.Port,
		Handler: r,
	}

	go func() {
		l.Info("server starting", "port", env.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("shutdown failed", "error", err)
	}
}
