package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/adapter/cli/calendar"
	"github.com/felixgeelhaar/cadence/adapter/cli/event"
	"github.com/felixgeelhaar/cadence/adapter/cli/mcp"
	"github.com/felixgeelhaar/cadence/adapter/cli/schedule"
	"github.com/felixgeelhaar/cadence/internal/app"
	mcpinternal "github.com/felixgeelhaar/cadence/internal/mcp"
	"github.com/felixgeelhaar/cadence/pkg/config"
	"github.com/felixgeelhaar/cadence/pkg/observability"
)

func main() {
	// Setup logger. Commands print to stdout, so only warnings are logged
	// unless debug logging is requested.
	logConfig := observability.DefaultLogConfig()
	logConfig.Level = "warn"
	logger := observability.NewLogger(logConfig)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if path := cli.PeekConfigFile(os.Args[1:]); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			logger.Error("failed to load profile", "path", path, "error", err)
			os.Exit(1)
		}
	}

	// Update logger level based on config
	if cfg.LogLevel == "debug" {
		logConfig.Level = cfg.LogLevel
		logger = observability.NewLogger(logConfig)
	}
	cli.SetLogger(logger)

	// Try to initialize the full container
	var cliApp *cli.App
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			// In development, allow CLI to run without database
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()
		cliApp = mcpinternal.NewCLIApp(container)
	}

	// Set the CLI app
	cli.SetApp(cliApp)

	// Register commands
	cli.AddCommand(event.Cmd)
	cli.AddCommand(schedule.Cmd)
	cli.AddCommand(calendar.Cmd)
	cli.AddCommand(mcp.Cmd)

	// Execute CLI
	cli.Execute()

	// Without a broker nothing else relays the outbox, so deliver what this
	// command wrote to the in-process subscribers before exiting.
	if container != nil && container.InProcessBus != nil {
		if err := container.OutboxProcessor.ProcessOnce(ctx); err != nil {
			logger.Warn("failed to relay outbox", "error", err)
		}
	}
}
