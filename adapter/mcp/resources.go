package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	scheduleQueries "github.com/felixgeelhaar/cadence/internal/scheduling/application/queries"
	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers MCP resources that expose calendar data.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}
	app := deps.App

	srv.Resource("cadence://events/week").
		Name("This Week").
		Description("Occurrences of the next seven days, with recurring series expanded").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			out, err := listOccurrences(ctx, app, eventListInput{}, time.Now())
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, out)
		})

	srv.Resource("cadence://schedule/conflicts").
		Name("Upcoming Conflicts").
		Description("Overlapping events in the next seven days").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			out, err := findConflicts(ctx, app, scheduleConflictsInput{}, time.Now())
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, out)
		})

	srv.Resource("cadence://schedule/patterns").
		Name("Scheduling Patterns").
		Description("Working hours and habits learned from the last 30 days").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil || app.GetPatternsHandler == nil {
				return nil, fmt.Errorf("patterns require database connection")
			}
			patterns, err := app.GetPatternsHandler.Handle(ctx, scheduleQueries.GetPatternsQuery{
				UserID: app.CurrentUserID,
				Now:    time.Now(),
			})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, patterns)
		})

	srv.Resource("cadence://user/profile").
		Name("User Profile").
		Description("Current user and timezone").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil {
				return nil, fmt.Errorf("profile requires initialization")
			}
			return jsonResource(uri, map[string]any{
				"user_id":  app.CurrentUserID.String(),
				"timezone": app.Loc().String(),
			})
		})

	return nil
}

func jsonResource(uri string, v any) (*mcp.ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(data),
	}, nil
}
