package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"job-digest/internal/config"
	"job-digest/internal/domain/entity"
	pgRepo "job-digest/internal/infra/adapter/persistence/postgres"
	liteRepo "job-digest/internal/infra/adapter/persistence/sqlite"
	"job-digest/internal/infra/db"
	"job-digest/internal/infra/exporter"
	"job-digest/internal/infra/fetcher"
	"job-digest/internal/infra/notifier"
	"job-digest/internal/infra/source"
	workerPkg "job-digest/internal/infra/worker"
	"job-digest/internal/observability/logging"
	"job-digest/internal/repository"
	"job-digest/internal/usecase/aggregate"
	"job-digest/internal/usecase/notify"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	database, driver := db.Open()
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// The worker owns the schema; the API only reads it.
	if err := db.MigrateUp(database, driver); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("notify_max_concurrent", workerConfig.NotifyMaxConcurrent),
		slog.Duration("run_timeout", workerConfig.RunTimeout),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Bool("run_once", workerConfig.RunOnce))

	// Load aggregation criteria
	crit, err := config.LoadCriteria(criteriaPath())
	if err != nil {
		logger.Error("failed to load criteria", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("criteria loaded",
		slog.Int("keywords", len(crit.SearchKeywords)),
		slog.Int("locations", len(crit.PreferredLocations)),
		slog.Int("retention_days", crit.RetentionDays),
		slog.String("update_policy", string(crit.UpdatePolicy)))

	repo := newJobRepository(database, driver, crit.UpdatePolicy)
	svc := setupAggregateService(logger, repo, crit)

	// Initialize email notification channel
	emailConfig := loadEmailConfig(logger)
	emailChannel := notify.NewEmailChannel(emailConfig)
	if emailConfig.Enabled {
		logger.Info("Email channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Email channel disabled")
	}

	notifyService := notify.NewService([]notify.Channel{emailChannel}, workerConfig.NotifyMaxConcurrent)
	logger.Info("Notification service initialized",
		slog.Int("channels", 1),
		slog.Int("max_concurrent", workerConfig.NotifyMaxConcurrent))

	exp := exporter.NewFileExporter(exportPath())

	// Start metrics HTTP server
	startMetricsServer(ctx, logger, notifyService)

	if workerConfig.RunOnce {
		runOnce(logger, svc, notifyService, exp, workerConfig, workerMetrics)
		return
	}

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	startCronWorker(logger, svc, notifyService, exp, workerConfig, workerMetrics, healthServer)
}

// criteriaPath returns the criteria file location from CRITERIA_PATH,
// defaulting to criteria.yaml in the working directory.
func criteriaPath() string {
	if p := os.Getenv("CRITERIA_PATH"); p != "" {
		return p
	}
	return "criteria.yaml"
}

// exportPath returns the JSON export destination from EXPORT_PATH,
// defaulting to jobs_data.json in the working directory.
func exportPath() string {
	if p := os.Getenv("EXPORT_PATH"); p != "" {
		return p
	}
	return "jobs_data.json"
}

// newJobRepository selects the store implementation matching the driver
// reported by db.Open.
func newJobRepository(database *sql.DB, driver string, policy config.UpdatePolicy) repository.JobRepository {
	if driver == db.DriverSQLite {
		return liteRepo.NewJobRepo(database, policy)
	}
	return pgRepo.NewJobRepo(database, policy)
}

// setupAggregateService wires the pipeline: adapters, optional description
// enrichment, and the orchestrator itself.
func setupAggregateService(logger *slog.Logger, repo repository.JobRepository, crit *config.Criteria) *aggregate.Service {
	httpClient := createHTTPClient()

	adapters := []aggregate.SourceAdapter{
		source.NewRemotiveAdapter(httpClient),
		source.NewRemoteOKAdapter(httpClient),
		source.NewArbeitnowAdapter(httpClient),
		source.NewWeWorkRemotelyAdapter(httpClient),
		source.NewGoogleJobsAdapter(httpClient),
	}
	logger.Info("source adapters initialized", slog.Int("count", len(adapters)))

	// Load description fetch configuration from environment
	fetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load description fetch configuration",
			slog.Any("error", err))
		logger.Warn("Description fetching disabled due to configuration error")
		fetchConfig = fetcher.DefaultConfig()
		fetchConfig.Enabled = false
	}

	var descFetcher aggregate.DescriptionFetcher
	if fetchConfig.Enabled {
		descFetcher = fetcher.NewReadabilityFetcher(fetchConfig)
		logger.Info("Description fetching enabled",
			slog.Int("parallelism", fetchConfig.Parallelism),
			slog.Duration("timeout", fetchConfig.Timeout))
	} else {
		logger.Info("Description fetching disabled")
	}

	cfg := aggregate.DefaultConfig()
	cfg.Retention = time.Duration(crit.RetentionDays) * 24 * time.Hour
	cfg.NewWindow = time.Duration(crit.NewWindowHours) * time.Hour
	if fetchConfig.Parallelism > 0 {
		cfg.EnrichParallelism = fetchConfig.Parallelism
	}

	return aggregate.NewService(repo, adapters, crit, descFetcher, cfg)
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced for security.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12, // Enforce TLS 1.2+
			},
		},
	}
}

// loadEmailConfig loads SMTP delivery configuration from environment variables.
//
// Environment variables:
//   - EMAIL_ENABLED: Boolean flag to enable digest emails (default: false)
//   - SMTP_HOST: SMTP server hostname (required if enabled)
//   - SMTP_PORT: SMTP server port (default: 587)
//   - SMTP_USERNAME / SMTP_PASSWORD: PLAIN auth credentials (optional)
//   - EMAIL_FROM: Sender address (required if enabled)
//   - EMAIL_TO: Comma-separated recipient addresses (required if enabled)
func loadEmailConfig(logger *slog.Logger) notifier.EmailConfig {
	enabled := os.Getenv("EMAIL_ENABLED") == "true"
	if !enabled {
		return notifier.EmailConfig{Enabled: false}
	}

	host := os.Getenv("SMTP_HOST")
	if host == "" {
		logger.Warn("SMTP host is empty, disabling digest emails")
		return notifier.EmailConfig{Enabled: false}
	}

	port := 587
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil || p <= 0 || p > 65535 {
			logger.Warn("Invalid SMTP port, disabling digest emails", slog.String("port", portStr))
			return notifier.EmailConfig{Enabled: false}
		}
		port = p
	}

	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		logger.Warn("Sender address is empty, disabling digest emails")
		return notifier.EmailConfig{Enabled: false}
	}

	var to []string
	for _, addr := range strings.Split(os.Getenv("EMAIL_TO"), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		logger.Warn("Recipient list is empty, disabling digest emails")
		return notifier.EmailConfig{Enabled: false}
	}

	return notifier.EmailConfig{
		Enabled:  true,
		Host:     host,
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     from,
		To:       to,
		Timeout:  30 * time.Second,
	}
}

// startCronWorker starts the cron scheduler and runs the aggregation job periodically.
func startCronWorker(logger *slog.Logger, svc *aggregate.Service, notifyService notify.Service, exp *exporter.FileExporter, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	// Load timezone
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runAggregationJob(logger, svc, notifyService, exp, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker marked as ready")

	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))
	select {}
}

// runOnce executes a single aggregation run and exits, for CI cron setups.
// Exit code is 0 for success and partial runs, 1 for fatal ones.
func runOnce(logger *slog.Logger, svc *aggregate.Service, notifyService notify.Service, exp *exporter.FileExporter, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	ok := runAggregationJob(logger, svc, notifyService, exp, cfg, metrics)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := notifyService.Shutdown(shutdownCtx); err != nil {
		logger.Warn("notification service shutdown incomplete", slog.Any("error", err))
	}

	if !ok {
		os.Exit(1)
	}
}

// runAggregationJob executes a single pipeline run with timeout and error
// handling, then delivers the digest and refreshes the JSON export.
// Returns false only for fatal runs.
func runAggregationJob(logger *slog.Logger, svc *aggregate.Service, notifyService notify.Service, exp *exporter.FileExporter, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) bool {
	startTime := time.Now()
	logger.Info("aggregation run started")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	result, err := svc.Run(ctx)
	if err != nil {
		logger.Error("aggregation run failed", slog.Any("error", err))
		metrics.RecordRun("failure")
		metrics.RecordRunDuration(time.Since(startTime).Seconds())
		return false
	}

	status := "success"
	if result.Outcome == aggregate.OutcomePartial {
		status = "partial"
	}
	metrics.RecordRun(status)
	metrics.RecordRunDuration(time.Since(startTime).Seconds())
	metrics.RecordSourcesFetched(result.Run.Sources)
	metrics.RecordLastSuccess()

	now := time.Now().UTC()
	digest := &entity.Digest{
		Date:        now,
		Jobs:        result.NewJobs(),
		TotalStored: result.Stats.TotalJobs,
		BySource:    result.Stats.BySource,
	}
	if err := notifyService.NotifyDigest(ctx, digest); err != nil {
		logger.Warn("digest dispatch rejected", slog.Any("error", err))
	}

	if err := exp.Export(result.Jobs, result.Stats, now); err != nil {
		logger.Error("export failed", slog.Any("error", err))
	}

	logger.Info("aggregation run completed",
		slog.String("outcome", result.Outcome.String()),
		slog.Int("sources", result.Run.Sources),
		slog.Int("fetched", result.Run.Fetched),
		slog.Int("dropped", result.Run.Dropped),
		slog.Int("duplicates", result.Run.Duplicates),
		slog.Int("filtered_out", result.Run.FilteredOut),
		slog.Int64("inserted", result.Run.Inserted),
		slog.Int64("updated", result.Run.Updated),
		slog.Int64("purged", result.Run.Purged),
		slog.Int("new_jobs", len(digest.Jobs)),
		slog.Duration("duration", time.Since(startTime)),
	)
	return true
}
