package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"job-digest/internal/config"
	pgRepo "job-digest/internal/infra/adapter/persistence/postgres"
	liteRepo "job-digest/internal/infra/adapter/persistence/sqlite"
	"job-digest/internal/infra/db"
	"job-digest/internal/observability/logging"
	"job-digest/internal/repository"

	hhttp "job-digest/internal/handler/http"
	"job-digest/internal/handler/http/jobs"
	"job-digest/internal/handler/http/requestid"
)

// @title           Job Digest API
// @version         1.0
// @description     求人情報集約パイプラインの読み取り専用ダッシュボード API です。
// @description     保存済み求人と集約統計を配信します。書き込みはワーカーのみが行います。

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	database, driver := db.Open()
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// The API is read-only and never migrates; the worker owns the schema.
	crit, err := config.LoadCriteria(criteriaPath())
	if err != nil {
		logger.Error("failed to load criteria", slog.Any("error", err))
		os.Exit(1)
	}

	repo := newJobRepository(database, driver, crit.UpdatePolicy)
	newWindow := time.Duration(crit.NewWindowHours) * time.Hour

	version := getVersion()
	handler := setupServer(logger, database, repo, newWindow, version)

	runServer(logger, handler, version)
}

// criteriaPath returns the criteria file location from CRITERIA_PATH,
// defaulting to criteria.yaml in the working directory.
func criteriaPath() string {
	if p := os.Getenv("CRITERIA_PATH"); p != "" {
		return p
	}
	return "criteria.yaml"
}

// newJobRepository selects the store implementation matching the driver
// reported by db.Open.
func newJobRepository(database *sql.DB, driver string, policy config.UpdatePolicy) repository.JobRepository {
	if driver == db.DriverSQLite {
		return liteRepo.NewJobRepo(database, policy)
	}
	return pgRepo.NewJobRepo(database, policy)
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// setupServer configures and returns the HTTP handler with all routes and middleware.
func setupServer(logger *slog.Logger, database *sql.DB, repo repository.JobRepository, newWindow time.Duration, version string) http.Handler {
	mux := http.NewServeMux()

	// ヘルスチェックエンドポイント（認証不要）
	mux.Handle("/health", &hhttp.HealthHandler{DB: database, Version: version})
	mux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("/live", &hhttp.LiveHandler{})
	mux.Handle("/metrics", hhttp.MetricsHandler())

	jobs.Register(mux, repo, newWindow, logger)

	return applyMiddleware(logger, mux)
}

// applyMiddleware wraps the handler with the middleware chain.
// Order (outermost first): Request ID → Rate Limit → Recovery → Logging →
// Body Limit → Input Validation → Timeout → Metrics.
func applyMiddleware(logger *slog.Logger, handler http.Handler) http.Handler {
	// レート制限: ダッシュボードは1分間に120リクエストまで
	rateLimiter := hhttp.NewRateLimiter(120, 1*time.Minute)

	chain := handler

	// Apply in reverse order (innermost to outermost)
	chain = hhttp.MetricsMiddleware(chain)
	chain = hhttp.Timeout(15 * time.Second)(chain)
	chain = hhttp.InputValidation()(chain)
	chain = hhttp.LimitRequestBody(1 << 20)(chain) // 1MB limit
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)
	chain = rateLimiter.Limit(chain)
	chain = requestid.Middleware(chain)

	return chain
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, handler http.Handler, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
