package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/iudanet/sitesync/internal/agent/api"
	"github.com/iudanet/sitesync/internal/agent/auth"
	"github.com/iudanet/sitesync/internal/agent/cli"
	"github.com/iudanet/sitesync/internal/agent/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", envOr("SITESYNC_SERVER", "http://localhost:8080"), "Server URL")
	dbPath := flag.String("db", envOr("SITESYNC_AGENT_DB", "sitesync-agent.db"), "Path to local database")
	passphrase := flag.String("passphrase", "", "Site passphrase (not recommended, use SITESYNC_PASSPHRASE or a file)")
	passphraseFile := flag.String("passphrase-file", "", "Path to file containing the site passphrase")
	logLevel := flag.String("log-level", envOr("SITESYNC_LOG_LEVEL", "warn"), "Log level: debug, info, warn, error")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	logger := setupLogger(*logLevel)
	ctx := context.Background()

	store, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	apiClient := api.NewClient(*serverURL)
	authService := auth.NewService(apiClient, store, logger)

	app := cli.New(apiClient, authService, store, logger, cli.Passphrases{
		FromFile: *passphraseFile,
		FromArgs: *passphrase,
	})
	app.Run(ctx, command, args[1:])
}

func setupLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelWarn
	}
	// Логи агента идут в stderr, чтобы не мешаться с выводом команд
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printVersion() {
	fmt.Printf("SiteSync Agent\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
