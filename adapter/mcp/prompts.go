package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common scheduling workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("weekly_planning").
		Description("Review the coming week: conflicts, free time and suggestions.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return userPrompt("Weekly Planning", `Help me plan the coming week. Please:

1. Read my calendar for the week from the cadence://events/week resource
2. Check cadence://schedule/conflicts for overlapping events
3. Read my working patterns from cadence://schedule/patterns
4. Call schedule.suggestions for hints about the week

Based on this:
- Point out days that are overloaded or have back-to-back meetings
- Propose where to move conflicting events, using schedule.find_slots
- Suggest focus blocks in my productive hours

Ask before changing anything. When I agree, use event.edit with scope
single for one occurrence, or thisAndFuture to change a series from a
date on.`), nil
		})

	srv.Prompt("resolve_conflicts").
		Description("Walk through scheduling conflicts one at a time and fix them.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return userPrompt("Resolve Conflicts", `Find my scheduling conflicts with schedule.conflicts and go through
them from the most severe. For each one, show the overlapping events and
the suggested alternatives, and ask which event to move. Check the new
time with schedule.conflicts (proposed_start, proposed_end and
exclude_event_id) before calling event.edit.`), nil
		})

	return nil
}

func userPrompt(description, text string) *mcp.PromptResult {
	return &mcp.PromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: string(mcp.RoleUser),
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}
}
