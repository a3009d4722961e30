package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/app"
	mcpinternal "github.com/felixgeelhaar/cadence/internal/mcp"
	"github.com/felixgeelhaar/cadence/pkg/config"
	"github.com/felixgeelhaar/cadence/pkg/observability"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start an MCP server over streamable HTTP exposing event and
schedule tools, weekly resources and planning prompts.

Set MCP_AUTH_TOKEN to require a bearer token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if path := cli.ConfigFile(); path != "" {
			if err := cfg.LoadFile(path); err != nil {
				return err
			}
		}
		if serveAddr != "" {
			cfg.MCPAddr = serveAddr
		}

		logger := newServerLogger(cmd.ErrOrStderr(), cfg.IsDevelopment())

		container, err := app.NewContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		if container.InProcessBus != nil {
			go func() {
				_ = container.OutboxProcessor.Run(ctx)
			}()
		}

		cliApp := mcpinternal.NewCLIApp(container)
		err = mcpinternal.Serve(ctx, cfg, cliApp, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default MCP_ADDR or 127.0.0.1:8082)")
}

func newServerLogger(out io.Writer, debug bool) *slog.Logger {
	cfg := observability.DefaultLogConfig()
	cfg.Output = out
	cfg.Service = "cadence-mcp"
	if debug {
		cfg.Level = "debug"
	}
	return observability.NewLogger(cfg)
}
