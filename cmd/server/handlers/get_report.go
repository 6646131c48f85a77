package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ip-san/devsync/config"
	"github.com/ip-san/devsync/record"
	"github.com/ip-san/devsync/report"
)

// ReportBuilder is the slice of report.Builder the handler needs, kept
// narrow so tests can substitute a fake.
type ReportBuilder interface {
	Build(ctx context.Context, repos []string, period record.Period) (*report.Report, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GetReport serves an on-demand report over the configured repositories.
// The period_days query parameter overrides the configured period length.
func GetReport(builder ReportBuilder, rules *config.Rules, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := rules.PeriodDays
		if v := r.URL.Query().Get("period_days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest,
					record.Fail[*report.Report](errors.New("period_days must be a positive integer")))
				return
			}
			days = n
		}

		period := record.LastDays(time.Now().UTC(), days)
		rep, err := builder.Build(r.Context(), rules.Repositories, period)
		if err != nil {
			logger.Error("report build failed", "error", err)
			writeJSON(w, http.StatusInternalServerError,
				record.Fail[*report.Report](errors.New("failed to build report")))
			return
		}

		writeJSON(w, http.StatusOK, record.Ok(rep))
	}
}
