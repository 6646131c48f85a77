package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ip-san/devsync/config"
	"github.com/ip-san/devsync/record"
	"github.com/ip-san/devsync/store"
	"github.com/ip-san/devsync/trace"
)

// TraceChain resolves the production-merge chain of one pull request. It is
// the diagnostic for why an issue has no cycle time. Chains resolve against
// the snapshot store; source=live traces over the GitHub API instead, for
// pull requests newer than the last collector run. live is nil when the
// server has no GitHub credentials.
func TraceChain(snapshot, live trace.Source, rules *config.Rules, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := chi.URLParam(r, "owner")
		name := chi.URLParam(r, "repo")
		number, err := strconv.Atoi(chi.URLParam(r, "number"))
		if err != nil || number < 1 {
			writeJSON(w, http.StatusBadRequest,
				record.Fail[*trace.Result](errors.New("pull request number must be a positive integer")))
			return
		}

		source := snapshot
		switch r.URL.Query().Get("source") {
		case "", "snapshot":
		case "live":
			if live == nil {
				writeJSON(w, http.StatusBadRequest,
					record.Fail[*trace.Result](errors.New("live tracing is not configured: the server has no GitHub credentials")))
				return
			}
			source = live
		default:
			writeJSON(w, http.StatusBadRequest,
				record.Fail[*trace.Result](errors.New("source must be snapshot or live")))
			return
		}

		repo := owner + "/" + name
		tracer := trace.NewTracer(source, rules.IsProductionBranch, rules.MaxChainDepth, logger)
		result, err := tracer.Trace(r.Context(), repo, number)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeJSON(w, http.StatusNotFound,
					record.Fail[*trace.Result](errors.New("pull request not found")))
				return
			}
			logger.Error("trace failed", "repo", repo, "pull_request", number, "error", err)
			writeJSON(w, http.StatusInternalServerError,
				record.Fail[*trace.Result](errors.New("failed to trace pull request")))
			return
		}

		writeJSON(w, http.StatusOK, record.Ok(&result))
	}
}
