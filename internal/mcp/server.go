package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	mcplocal "github.com/felixgeelhaar/cadence/adapter/mcp"
	"github.com/felixgeelhaar/cadence/pkg/config"
	mcpgo "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/middleware"
)

// NewServer builds the MCP server for cliApp with its tools, resources and
// prompts registered. Resources and prompts are optional; a failure to
// register them is logged and the server is still returned.
func NewServer(cliApp *cli.App, logger *slog.Logger) (*mcpgo.Server, error) {
	if cliApp == nil {
		return nil, errors.New("CLI app is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv := mcpgo.NewServer(mcpgo.ServerInfo{
		Name:    "cadence-mcp",
		Version: cli.Version,
		Capabilities: mcpgo.Capabilities{
			Tools:     true,
			Resources: true,
			Prompts:   true,
		},
	})

	deps := mcplocal.ToolDependencies{App: cliApp}
	if err := mcplocal.RegisterCLITools(srv, deps); err != nil {
		return nil, err
	}
	if err := mcplocal.RegisterResources(srv, deps); err != nil {
		logger.Warn("failed to register MCP resources", "error", err)
	}
	if err := mcplocal.RegisterPrompts(srv, deps); err != nil {
		logger.Warn("failed to register MCP prompts", "error", err)
	}
	return srv, nil
}

// Serve starts an MCP server over HTTP and blocks until the context is
// canceled. Requests need a bearer token when MCPAuthToken is set.
func Serve(ctx context.Context, cfg *config.Config, cliApp *cli.App, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv, err := NewServer(cliApp, logger)
	if err != nil {
		return err
	}

	adapter := mcpLogger{logger: logger}
	stack := middleware.DefaultStack(adapter)

	if cfg.MCPAuthToken != "" {
		authenticator := middleware.BearerTokenAuthenticator(middleware.StaticTokens(map[string]*middleware.Identity{
			cfg.MCPAuthToken: {ID: cliApp.CurrentUserID.String(), Name: "cadence"},
		}))
		stack = append([]middleware.Middleware{middleware.Auth(authenticator, middleware.WithAuthLogger(adapter))}, stack...)
	} else {
		logger.Warn("MCP auth token not set; requests will be unauthenticated")
	}

	logger.Info("mcp server listening", "addr", cfg.MCPAddr, "user_id", cliApp.CurrentUserID)
	return mcpgo.ServeHTTPWithMiddleware(ctx, srv, cfg.MCPAddr, nil, mcpgo.WithMiddleware(stack...))
}

type mcpLogger struct {
	logger *slog.Logger
}

func (l mcpLogger) Info(msg string, fields ...middleware.Field) {
	l.logger.Info(msg, fieldsToArgs(fields)...)
}

func (l mcpLogger) Error(msg string, fields ...middleware.Field) {
	l.logger.Error(msg, fieldsToArgs(fields)...)
}

func (l mcpLogger) Debug(msg string, fields ...middleware.Field) {
	l.logger.Debug(msg, fieldsToArgs(fields)...)
}

func (l mcpLogger) Warn(msg string, fields ...middleware.Field) {
	l.logger.Warn(msg, fieldsToArgs(fields)...)
}

func fieldsToArgs(fields []middleware.Field) []any {
	args := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		args = append(args, field.Key, field.Value)
	}
	return args
}
