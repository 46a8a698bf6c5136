// Package main is the entry point for the jobops-api server: a single-operator
// job-opportunity triage pipeline fed by webhooks, RSS polls, and manual posts.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/jobops/jobops-api/internal/config"
	"github.com/jobops/jobops-api/internal/database"
	"github.com/jobops/jobops-api/internal/http/handlers"
	"github.com/jobops/jobops-api/internal/http/mw"
	"github.com/jobops/jobops-api/internal/http/routes"
	"github.com/jobops/jobops-api/internal/logging"
	"github.com/jobops/jobops-api/internal/repository"
	"github.com/jobops/jobops-api/internal/rss"
	"github.com/jobops/jobops-api/internal/scheduler"
	"github.com/jobops/jobops-api/internal/service"
	"github.com/jobops/jobops-api/internal/version"
	"github.com/jobops/jobops-api/internal/worker"
)

func main() {
	// Initialize logger with TTY detection, source paths, and format control
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting jobops-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Run migrations (with logging for each migration applied)
	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	schemaVersion, err := database.GetLatestSchemaVersion(db)
	if err != nil {
		logger.Warn("failed to get schema version", "error", err)
	} else {
		migrationCount, _ := database.GetMigrationCount(db)
		logger.Info("database schema ready", "schema_version", schemaVersion, "migrations_applied", migrationCount)
	}

	// Feature detection: older databases missing optional tables degrade
	// those endpoints instead of failing startup.
	features, err := repository.DetectFeatures(context.Background(), db)
	if err != nil {
		logger.Error("failed to detect schema features", "error", err)
		os.Exit(1)
	}
	logger.Info("schema features detected",
		"evidence", features.Evidence,
		"scoring_runs", features.ScoringRuns,
		"contacts", features.Contacts,
		"events", features.Events,
	)

	repos := repository.NewRepositories(db)

	services, err := service.NewServices(cfg, repos, features, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	if !services.LLM.Available() {
		logger.Warn("no ANTHROPIC_API_KEY set - scoring and extraction endpoints will return 502")
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Inbound pollers: RSS when feeds are configured. A gmail poller plugs in
	// under the "gmail" key once a mailbox binding exists.
	pollers := make(map[string]scheduler.Poller)
	if len(cfg.RSSFeeds) > 0 {
		pollers["rss"] = rss.New(cfg.RSSFeeds, cfg.JDFetchTimeout, logger)
		logger.Info("rss polling enabled", "feeds", len(cfg.RSSFeeds))
	}

	runner := scheduler.NewRunner(cfg, services.Ingest, services.Recovery, services.Event, services.LLM, pollers, logger)
	if err := runner.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	var scoreWorker *worker.Worker
	if cfg.WorkerEnabled {
		scoreWorker = worker.New(services.Recovery, worker.Config{
			PollInterval: cfg.WorkerPollInterval,
			BatchSize:    cfg.RecoverConcurrency,
		}, logger)
		scoreWorker.Start(ctx)
	} else {
		logger.Info("background worker disabled")
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// LLM-backed operations need more than the default request budget.
	router.Use(mw.Timeout(mw.TimeoutConfig{
		Default:  30 * time.Second,
		Extended: 3 * time.Minute,
		ExtendedPatterns: []string{
			"/rescore",
			"/manual-jd",
			"/auto-pilot",
			"/score-pending",
			"/application-pack",
			"/evidence/rebuild-archived",
		},
	}))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "X-API-Version"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB) - manual JD pastes fit comfortably
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	router.Use(httprate.LimitByIP(cfg.RateLimitRPM, time.Minute))
	router.Use(mw.APIVersion())

	api := humachi.New(router, routes.NewHumaConfig(cfg.BaseURL))

	routes.Register(api, &routes.Handlers{
		Healthz: handlers.NewHealthHandler(db).Healthz,
		Version: handlers.Version,

		Ingest:   handlers.NewIngestHandler(services.Ingest),
		Job:      handlers.NewJobsHandler(repos.Job, repos.ScoringRun, services.Evidence, features),
		Scoring:  handlers.NewScoringHandler(services.Scoring, services.Pack, services.Recovery, repos.Job),
		Evidence: handlers.NewEvidenceHandler(services.Evidence),
		Pack:     handlers.NewPacksHandler(services.Pack, services.Export),
		Target:   handlers.NewTargetsHandler(repos.Target),
		Profile:  handlers.NewProfilesHandler(repos.Profile, repos.Job, repos.Preference, features),
		Contact:  handlers.NewContactsHandler(services.Contact),
	})

	// Webhook receivers stay raw chi handlers: signature middleware needs the
	// unparsed body, and each endpoint only exists when its secret is set.
	if cfg.WhatsAppJWTSecret != "" {
		media := handlers.NewSkipMediaExtractor(services.Event)
		wa := handlers.NewWhatsAppWebhookHandler(services.Ingest, media, services.Event, cfg.WhatsAppAllowedSenders, logger)
		router.With(mw.VonageJWT(cfg.WhatsAppJWTSecret, logger)).
			Post("/ingest/whatsapp/vonage", wa.HandleInbound)
		logger.Info("whatsapp webhook enabled", "allowed_senders", len(cfg.WhatsAppAllowedSenders))
	}
	if cfg.RelayWebhookSecret != "" {
		relay := handlers.NewRelayWebhookHandler(services.Ingest, services.Event, logger)
		router.With(mw.SvixVerify(cfg.RelayWebhookSecret, logger)).
			Post("/ingest/webhook/relay", relay.HandleRelay)
		logger.Info("relay webhook enabled")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		cancel()
		if scoreWorker != nil {
			scoreWorker.Stop()
		}
		runner.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
