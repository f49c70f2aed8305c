package jobs

import (
	"log/slog"
	"net/http"
	"time"

	"job-digest/internal/handler/http/requestid"
	"job-digest/internal/handler/http/respond"
	"job-digest/internal/infra/exporter"
	"job-digest/internal/observability/logging"
	"job-digest/internal/repository"
)

// StatsHandler serves store statistics without the job list.
type StatsHandler struct {
	Repo      repository.JobRepository
	NewWindow time.Duration
	Logger    *slog.Logger
}

// ServeHTTP returns store statistics in the export document shape.
// @Summary      Store statistics
// @Description  Returns total, per-source and new-job counts for the retention store.
// @Tags         jobs
// @Produce      json
// @Success      200 {object} exporter.Document
// @Failure      500 {string} string "Server error"
// @Router       /api/stats [get]
func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reqID := requestid.FromContext(ctx)
	logger := logging.WithRequestID(ctx, h.Logger)

	now := time.Now().UTC()
	stats, err := h.Repo.Stats(ctx, now, h.NewWindow)
	if err != nil {
		logger.Error("Failed to load store stats",
			"error", err.Error(),
			"request_id", reqID)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	logger.Info("Stats request",
		"total_jobs", stats.TotalJobs,
		"request_id", reqID)

	respond.JSON(w, http.StatusOK, exporter.BuildDocument(nil, stats, now))
}
