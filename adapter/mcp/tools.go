package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/mcp-go"
)

// ToolDependencies provides handlers and context for MCP tools.
type ToolDependencies struct {
	App *cli.App
}

// RegisterCLITools registers MCP tools that mirror CLI functionality.
func RegisterCLITools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.App == nil {
		return errors.New("app is required")
	}

	srv.Tool("cli.health").
		Description("Check CLI wiring health: user, timezone and which handlers are connected").
		Handler(func(ctx context.Context, input struct{}) (*cli.WiringStatus, error) {
			status := deps.App.Status()
			return &status, nil
		})

	if err := registerEventTools(srv, deps); err != nil {
		return err
	}
	if err := registerScheduleTools(srv, deps); err != nil {
		return err
	}

	return nil
}
