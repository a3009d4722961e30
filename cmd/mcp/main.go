package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/cadence/internal/app"
	mcpinternal "github.com/felixgeelhaar/cadence/internal/mcp"
	"github.com/felixgeelhaar/cadence/pkg/config"
	"github.com/felixgeelhaar/cadence/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

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

	if container.InProcessBus != nil {
		go func() {
			if err := container.OutboxProcessor.Run(ctx); err != nil {
				logger.Error("outbox processor error", "error", err)
			}
		}()
	}

	cliApp := mcpinternal.NewCLIApp(container)

	if err := mcpinternal.Serve(ctx, cfg, cliApp, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
