// Package jobs exposes the read-only dashboard endpoints for the stored
// working set. Both endpoints serve the same document shape as the static
// JSON export, so the dashboard can read either interchangeably.
package jobs

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"job-digest/internal/handler/http/requestid"
	"job-digest/internal/handler/http/respond"
	"job-digest/internal/infra/exporter"
	"job-digest/internal/observability/logging"
	"job-digest/internal/repository"
)

const (
	defaultLookbackHours = 24
	maxLookbackHours     = 24 * 14
)

// ListHandler serves the stored jobs within a lookback window.
type ListHandler struct {
	Repo      repository.JobRepository
	NewWindow time.Duration
	Logger    *slog.Logger
}

// ServeHTTP returns stored jobs fetched within the lookback window.
// @Summary      List stored jobs
// @Description  Returns jobs fetched within the last N hours together with store statistics.
// @Tags         jobs
// @Produce      json
// @Param        hours  query    int  false  "Lookback window in hours" default(24) minimum(1) maximum(336)
// @Success      200 {object} exporter.Document
// @Failure      400 {string} string "Invalid query parameters"
// @Failure      500 {string} string "Server error"
// @Router       /api/jobs [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reqID := requestid.FromContext(ctx)
	logger := logging.WithRequestID(ctx, h.Logger)

	hours, err := parseHours(r)
	if err != nil {
		logger.Warn("Invalid lookback parameter",
			"error", err.Error(),
			"request_id", reqID)
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	now := time.Now().UTC()
	jobsList, err := h.Repo.Query(ctx, repository.JobQuery{
		Since: now.Add(-time.Duration(hours) * time.Hour),
	})
	if err != nil {
		logger.Error("Failed to query jobs",
			"error", err.Error(),
			"hours", hours,
			"request_id", reqID)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	for _, job := range jobsList {
		job.MarkNew(now, h.NewWindow)
	}

	stats, err := h.Repo.Stats(ctx, now, h.NewWindow)
	if err != nil {
		logger.Error("Failed to load store stats",
			"error", err.Error(),
			"request_id", reqID)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	logger.Info("Job list request",
		"hours", hours,
		"count", len(jobsList),
		"request_id", reqID)

	respond.JSON(w, http.StatusOK, exporter.BuildDocument(jobsList, stats, now))
}

// parseHours reads the optional hours query parameter.
func parseHours(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return defaultLookbackHours, nil
	}

	hours, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("hours must be an integer, got invalid value %q", raw)
	}
	if hours < 1 || hours > maxLookbackHours {
		return 0, fmt.Errorf("hours must be between 1 and %d", maxLookbackHours)
	}
	return hours, nil
}
