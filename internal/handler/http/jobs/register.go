package jobs

import (
	"log/slog"
	"net/http"
	"time"

	"job-digest/internal/repository"
)

// Register registers the dashboard endpoints with the given mux.
// All routes are read-only; mutations happen only through the worker pipeline.
func Register(mux *http.ServeMux, repo repository.JobRepository, newWindow time.Duration, logger *slog.Logger) {
	mux.Handle("GET /api/jobs", ListHandler{
		Repo:      repo,
		NewWindow: newWindow,
		Logger:    logger,
	})
	mux.Handle("GET /api/stats", StatsHandler{
		Repo:      repo,
		NewWindow: newWindow,
		Logger:    logger,
	})
}
