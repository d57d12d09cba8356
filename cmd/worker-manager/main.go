// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"research-workers/internal/api"
	"research-workers/internal/app"
	"research-workers/internal/common/camunda"
	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
	processquery "research-workers/internal/workers/research/process-query"
	"research-workers/pkg/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("failed to build application", zap.Error(err))
	}
	defer application.Close()

	// --- Zeebe workers (optional) ---
	var workers *camunda.Workers
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.Connect(ctx, camunda.ConfigFrom(cfg.Camunda), log)
		if err != nil {
			zapLog.Fatal("Zeebe connection failed", zap.Error(err))
		}
		zapLog.Info("Connected to Zeebe", zap.String("gateway", cfg.Camunda.BrokerAddress))

		workers = camunda.NewWorkers(log)
		for _, activity := range application.Registry.Enabled() {
			if !config.IsWorkerEnabled(cfg, activity.TaskType) {
				zapLog.Info("worker disabled by configuration", zap.String("taskType", activity.TaskType))
				continue
			}
			handler, ok := application.Handlers[activity.TaskType]
			if !ok {
				zapLog.Warn("no handler for registered activity", zap.String("taskType", activity.TaskType))
				continue
			}
			workers.StartWorker(zeebe.Zeebe(), activity.TaskType, workerConfig(cfg, activity), handler)
		}
		zapLog.Info("Workers registered", zap.Int("count", workers.Count()))
	}

	// --- Ask API, health & metrics ---
	server := api.NewServer(application.Pipeline, processquery.ToStandardError, cfg.Server.APIKey, log)
	httpServer := server.HTTPServer(cfg.Server)

	serveErr := make(chan error, 1)
	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	server.SetReady(true)

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received, stopping...")
	case err := <-serveErr:
		zapLog.Error("API server failed", zap.Error(err))
	}
	server.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down API server", zap.Error(err))
	}

	if workers != nil {
		workers.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// workerConfig uses the configured worker block when present and otherwise
// takes the activity timeout from the registry.
func workerConfig(cfg *config.Config, activity registry.Activity) config.WorkerConfig {
	if _, ok := cfg.Workers[activity.TaskType]; ok {
		return config.GetWorkerConfig(cfg, activity.TaskType)
	}

	wcfg := config.GetWorkerConfig(cfg, activity.TaskType)
	wcfg.MaxJobsActive = cfg.Camunda.MaxJobsActive
	if activity.MaxJobsActive > 0 {
		wcfg.MaxJobsActive = activity.MaxJobsActive
	}
	if d, err := activity.TimeoutDuration(); err == nil && d > 0 {
		wcfg.Timeout = int(d / time.Millisecond)
	}
	return wcfg
}
