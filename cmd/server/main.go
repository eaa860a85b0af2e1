package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/sitesync/internal/engine"
	"github.com/iudanet/sitesync/internal/server/handlers"
	"github.com/iudanet/sitesync/internal/server/middleware"
	"github.com/iudanet/sitesync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

type config struct {
	addr            string
	dbPath          string
	jwtSecret       string
	logLevel        string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	shutdownTimeout time.Duration
}

func main() {
	cfg := parseConfig()

	logger := setupLogger(cfg.logLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func parseConfig() config {
	var cfg config

	flag.StringVar(&cfg.addr, "addr", envOr("SITESYNC_ADDR", ":8080"), "HTTP listen address")
	flag.StringVar(&cfg.dbPath, "db", envOr("SITESYNC_DB", "sitesync.db"), "path to SQLite database file")
	flag.StringVar(&cfg.jwtSecret, "jwt-secret", os.Getenv("SITESYNC_JWT_SECRET"), "JWT signing secret")
	flag.StringVar(&cfg.logLevel, "log-level", envOr("SITESYNC_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.DurationVar(&cfg.accessTokenTTL, "access-ttl", 15*time.Minute, "access token lifetime")
	flag.DurationVar(&cfg.refreshTokenTTL, "refresh-ttl", 30*24*time.Hour, "refresh token lifetime")
	flag.DurationVar(&cfg.shutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg config, logger *slog.Logger) error {
	if cfg.jwtSecret == "" {
		return errors.New("JWT secret is required (set -jwt-secret or SITESYNC_JWT_SECRET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	jwtConfig := handlers.JWTConfig{
		Secret:          []byte(cfg.jwtSecret),
		AccessTokenTTL:  cfg.accessTokenTTL,
		RefreshTokenTTL: cfg.refreshTokenTTL,
	}

	syncEngine := engine.NewEngine(store, store, logger)

	authHandler := handlers.NewAuthHandler(logger, store, store, jwtConfig)
	syncHandler := handlers.NewSyncHandler(logger, syncEngine)
	healthHandler := handlers.NewHealthHandler(logger, store, Version)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	// Auth endpoints are public but rate limited by IP
	authLimit := middleware.RateLimitMiddleware(10, 1*time.Minute, logger)
	mux.Handle("POST /api/v1/auth/register", authLimit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("GET /api/v1/auth/salt/{site_id}", authLimit(http.HandlerFunc(authHandler.GetSalt)))
	mux.Handle("POST /api/v1/auth/login", authLimit(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/v1/auth/refresh", authLimit(http.HandlerFunc(authHandler.Refresh)))

	// Sync endpoints require a valid access token; each site gets its own bucket
	auth := middleware.AuthMiddleware(logger, jwtConfig)
	siteLimit := middleware.RateLimitBySiteMiddleware(120, 1*time.Minute, logger)
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(siteLimit(h))
	}

	mux.Handle("GET /api/v1/sync/pull", protected(syncHandler.Pull))
	mux.Handle("POST /api/v1/sync/push", protected(syncHandler.Push))
	mux.Handle("GET /api/v1/sync/status", protected(syncHandler.Status))
	mux.Handle("POST /api/v1/sync/retry", protected(syncHandler.Retry))
	mux.Handle("POST /api/v1/sync/full", protected(syncHandler.FullSync))
	mux.Handle("POST /api/v1/sync/cleanup", protected(syncHandler.Cleanup))

	handler := middleware.RecoveryMiddleware(logger)(
		middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(mux),
	)

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func printVersion() {
	fmt.Printf("SiteSync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
