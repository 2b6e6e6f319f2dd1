// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/aihubjp/eventhub/internal/cache"
	"github.com/aihubjp/eventhub/internal/config"
	"github.com/aihubjp/eventhub/internal/handler/api"
	"github.com/aihubjp/eventhub/internal/logging"
	"github.com/aihubjp/eventhub/internal/middleware"
	"github.com/aihubjp/eventhub/internal/model"
	"github.com/aihubjp/eventhub/internal/scheduler"
	"github.com/aihubjp/eventhub/internal/service"
	"github.com/aihubjp/eventhub/internal/source"
	"github.com/aihubjp/eventhub/internal/store"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	createKeyName := flag.String("create-api-key", "", "Create an API key with the given name and exit")
	createKeyPerms := flag.String("permissions", "events:read", "Comma-separated permissions for -create-api-key")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "eventhub - AI events aggregation service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTHUB_DB_PATH          SQLite database path (default: ./data/eventhub.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTHUB_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTHUB_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTHUB_REDIS_URL        Redis URL for the sync cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTHUB_SYNC_CRON        Cron spec for the periodic sync (default: @hourly)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTHUB_<PROVIDER>_API_KEY / _BASE_URL per provider; unset means sample mode\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Printf("eventhub %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if *createKeyName != "" {
		if err := createAPIKey(*createKeyName, *createKeyPerms); err != nil {
			slog.Error("failed to create API key", "error", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// createAPIKey generates a key, stores its hash, and prints the raw key once.
func createAPIKey(name, permissions string) error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	var perms []string
	for _, p := range strings.Split(permissions, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		perms = append(perms, p)
	}
	permsJSON, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("encoding permissions: %w", err)
	}

	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	now := time.Now().UTC()
	_, err = store.New(db).CreateAPIKey(context.Background(), store.CreateAPIKeyParams{
		Name:        name,
		KeyHash:     model.HashAPIKey(rawKey),
		KeyPrefix:   prefix,
		Permissions: string(permsJSON),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("storing key: %w", err)
	}

	fmt.Printf("API key created: %s\n", name)
	fmt.Printf("Key (shown once, store it now): %s\n", rawKey)
	fmt.Printf("Prefix: %s  Permissions: %s\n", prefix, strings.Join(perms, ", "))
	return nil
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the audit log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	auditLogHandler := logging.NewAuditLogHandler(textHandler, db)
	logger = slog.New(auditLogHandler)
	slog.SetDefault(logger)
	slog.Info("audit log integration enabled", "min_level", "warn")

	// Initialize cache backend for sync summaries
	cacheConfig := cache.Config{
		Type:             "memory",
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		DefaultTTL:       time.Duration(cfg.CacheTTL) * time.Second,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	}
	if cfg.UseRedisCache() {
		cacheConfig.Type = "redis"
	}
	backend, err := cache.NewCache(cacheConfig)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	slog.Info("cache initialized", "backend", cacheConfig.Type)

	syncCache := cache.NewSyncCache(backend, cfg.SyncTTLs(), time.Duration(cfg.SyncTTLDefault)*time.Second)

	// Register source adapters
	registry := source.NewRegistry()
	adapters := []source.Adapter{
		source.NewOpenAIAdapter(source.OpenAIOptions{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL}),
		source.NewGeminiAdapter(source.GeminiOptions{APIKey: cfg.GeminiAPIKey, BaseURL: cfg.GeminiBaseURL}),
		source.NewCohereAdapter(source.CohereOptions{APIKey: cfg.CohereAPIKey, BaseURL: cfg.CohereBaseURL}),
		source.NewSoftBankAdapter(source.PartnerOptions{APIKey: cfg.SoftBankAPIKey, BaseURL: cfg.SoftBankURL}),
		source.NewOracleAdapter(source.PartnerOptions{APIKey: cfg.OracleAPIKey, BaseURL: cfg.OracleURL}),
		source.NewMGXAdapter(source.PartnerOptions{APIKey: cfg.MGXAPIKey, BaseURL: cfg.MGXURL}),
	}
	for _, a := range adapters {
		if err := registry.Register(a); err != nil {
			return fmt.Errorf("registering adapter: %w", err)
		}
	}
	slog.Info("source adapters registered", "sources", registry.Sources())

	// Services
	auditService := service.NewAuditService(db)
	syncService := service.NewSyncService(db, registry, syncCache, auditService, logger)
	queryService := service.NewQueryService(db)
	eventService := service.NewEventService(db, auditService)

	// Rate limiters
	globalLimiter := middleware.NewGlobalRateLimiter(cfg.GlobalRateLimit, cfg.GlobalRateBurst)

	// Background jobs
	sched := scheduler.New(syncService, auditService, scheduler.Options{
		SyncSpec:           cfg.SyncCronSpec,
		AuditRetentionDays: cfg.AuditRetentionDays,
		RateLimiter:        globalLimiter,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// HTTP handlers
	eventsHandler := api.NewEventsHandler(queryService, eventService)
	syncHandler := api.NewSyncHandler(syncService)
	healthHandler := api.NewHealthHandler(db, backend)

	// Router. The 30s budget covers every route except sync: a forced sync
	// walks all providers sequentially with their own HTTP timeouts, so it
	// gets a multi-minute budget to match the server's WriteTimeout.
	reqTimeout := middleware.Timeout(30 * time.Second)
	syncTimeout := middleware.Timeout(4 * time.Minute)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	// Health endpoints
	r.Group(func(r chi.Router) {
		r.Use(reqTimeout)
		r.Use(middleware.OptionalAPIKeyAuth(db))
		r.Get("/health", healthHandler.Health)
	})
	r.With(reqTimeout).Get("/health/live", healthHandler.Liveness)
	r.With(reqTimeout).Get("/health/ready", healthHandler.Readiness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(globalLimiter.Middleware())

		// Public endpoints
		r.With(reqTimeout).Get("/status", api.Status)

		// Events - public read endpoints (optional auth for enhanced access)
		r.Group(func(r chi.Router) {
			r.Use(reqTimeout)
			r.Use(middleware.OptionalAPIKeyAuth(db))
			r.Get("/events", eventsHandler.List)
			r.Get("/events/{id:[0-9]+}", eventsHandler.Get)
			r.Get("/events/slug/{slug}", eventsHandler.GetBySlug)
		})

		// Protected endpoints (API key required)
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(db))
			r.Use(middleware.APIRateLimit(cfg.APIRateLimit, cfg.APIRateBurst))

			r.With(reqTimeout).Get("/auth", api.AuthInfo)

			// Events - write endpoints
			r.Group(func(r chi.Router) {
				r.Use(reqTimeout)
				r.Use(middleware.RequirePermission(model.PermissionEventsWrite))
				r.Post("/events", eventsHandler.Create)
				r.Put("/events/{id:[0-9]+}", eventsHandler.Update)
				r.Delete("/events/{id:[0-9]+}", eventsHandler.Delete)
				r.Patch("/events/{id:[0-9]+}/active", eventsHandler.SetActive)
			})

			// Sync endpoints
			r.Group(func(r chi.Router) {
				r.Use(syncTimeout)
				r.Use(middleware.RequirePermission(model.PermissionSyncRun))
				r.Post("/sync", syncHandler.Run)
				r.Get("/sync/status", syncHandler.Status)
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// Sync requests walk every provider sequentially, so writes can be slow
		WriteTimeout:   5 * time.Minute,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
