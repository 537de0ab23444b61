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
	"ideaengine/internal/enrich"
	"ideaengine/internal/logging"
	"ideaengine/internal/reconcile"
	"ideaengine/internal/taxonomy"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	store, err := clients.InitSupabase()
	if err != nil {
		slog.Error("Supabase client init failed, aborting", slog.String("error", err.Error()))
		os.Exit(1)
	}

	classifier := classify.New(taxonomy.Default())

	var suggester reconcile.SubjectSuggester
	if s := enrich.NewOpenAISuggester(); s != nil {
		suggester = s
		slog.Info("LLM subject suggester enabled")
	}

	reconciler := reconcile.New(store, classifier, suggester)

	intervalSeconds, err := strconv.Atoi(os.Getenv("RECONCILE_INTERVAL"))
	if err != nil {
		intervalSeconds = 3600
	}
	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	runOnce(ctx, reconciler)

	for {
		select {
		case <-ticker.C:
			runOnce(ctx, reconciler)
		case <-stopChan:
			slog.Info("Shutting down reconciler gracefully...")
			cancel()
			return
		}
	}
}

func runOnce(ctx context.Context, r *reconcile.Reconciler) {
	if _, err := r.Run(ctx); err != nil {
		slog.Error("Reconciliation run failed", slog.String("error", err.Error()))
	}
}
