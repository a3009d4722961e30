package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/felixgeelhaar/cadence/internal/app"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/workers"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/cadence/pkg/config"
	"github.com/felixgeelhaar/cadence/pkg/observability"
	"github.com/google/uuid"
)

func main() {
	// Setup logger
	logger := observability.LoggerFromEnv()

	logger.Info("starting cadence worker")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Rebuild the logger now that .env has been applied
	logger = observability.LoggerFromEnv()

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker component failed", "component", name, "error", err)
			}
		}()
	}

	// Relay the outbox to RabbitMQ or the in-process bus
	run("outbox", container.OutboxProcessor.Run)

	// Consume broker events; the in-process bus delivers them itself
	if container.InProcessBus == nil {
		registry := eventbus.NewConsumerRegistry(logger)
		registry.Register(container.PatternCacheSubscriber)

		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:    cfg.RabbitMQURL,
			Logger: logger,
		}, registry)
		if err != nil {
			logger.Error("failed to start RabbitMQ consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
		run("consumer", consumer.Run)
	}

	// Periodic calendar sync
	if container.SyncService != nil {
		syncWorker, err := workers.NewCalendarSyncWorker(container.SyncService, workers.CalendarSyncWorkerConfig{
			Schedule:   cfg.CalDAVSyncSchedule,
			Location:   container.Location,
			UserIDs:    []uuid.UUID{container.UserID},
			RunOnStart: true,
		}, container.Metrics, logger)
		if err != nil {
			logger.Error("failed to create calendar sync worker", "error", err)
			os.Exit(1)
		}
		run("calendar-sync", syncWorker.Run)
	} else {
		logger.Info("calendar sync disabled (CALDAV_URL not set)")
	}

	if cfg.WorkerHealthAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/readyz", container.Health.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			stats := container.OutboxProcessor.Stats()
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":    "ok",
				"published": stats.Published,
				"failed":    stats.Failed,
				"dead":      stats.Dead,
				"purged":    stats.Purged,
			})
		})

		healthSrv := &http.Server{
			Addr:              cfg.WorkerHealthAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
			if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", "error", err)
			}
		}()
	}

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("shutting down worker")
	wg.Wait()
	logger.Info("worker stopped")
}
