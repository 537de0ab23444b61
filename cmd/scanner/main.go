package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ideaengine/config"
	"ideaengine/internal/classify"
	"ideaengine/internal/clients"
	"ideaengine/internal/ingest"
	"ideaengine/internal/logging"
	"ideaengine/internal/scanner"
	"ideaengine/internal/taxonomy"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	reddit, err := clients.InitReddit()
	if err != nil {
		slog.Error("Reddit client init failed, aborting", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := clients.InitSupabase()
	if err != nil {
		slog.Error("Supabase client init failed, aborting", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cache ingest.ProcessedCache
	if os.Getenv("VALKEY_INIT_ADDRESS") != "" {
		cache = clients.InitValkey()
		defer clients.CloseValkey()
	} else {
		slog.Warn("VALKEY_INIT_ADDRESS not set, running without dedup cache")
	}

	tax := taxonomy.Default()
	classifier := classify.New(tax)
	gateway := ingest.NewGateway(store, cache)

	scan := scanner.New(reddit, classifier, gateway, scanner.Config{
		Sources:       tax.Sources,
		Queries:       tax.Queries,
		SearchLimit:   envInt("SCAN_SEARCH_LIMIT", 3),
		BroadLimit:    envInt("SCAN_BROAD_LIMIT", 25),
		Concurrency:   envInt("SCAN_CONCURRENCY", 4),
		RecencyWindow: time.Duration(envInt("SCAN_RECENCY_DAYS", 30)) * 24 * time.Hour,
		SnapshotDir:   os.Getenv("SCAN_SNAPSHOT_DIR"),
	})

	mode := os.Getenv("SCAN_MODE")
	if mode == "" {
		mode = "targeted"
	}

	interval := time.Duration(envInt("SCAN_INTERVAL", 21600)) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	runPass(ctx, scan, mode)

	for {
		select {
		case <-ticker.C:
			runPass(ctx, scan, mode)
		case <-stopChan:
			slog.Info("Shutting down scanner gracefully...")
			cancel()
			return
		}
	}
}

func runPass(ctx context.Context, scan *scanner.Scanner, mode string) {
	var err error
	if mode == "broad" {
		_, err = scan.RunBroad(ctx)
	} else {
		_, err = scan.RunTargeted(ctx)
	}
	if err != nil {
		slog.Error("Scan pass aborted", slog.String("mode", mode), slog.String("error", err.Error()))
	}
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
