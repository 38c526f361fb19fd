package tabtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/tabvault/internal/render"
	"github.com/HendryAvila/tabvault/internal/store"
)

// ListGroupsTool handles the tabs_list_groups MCP tool.
type ListGroupsTool struct {
	store *store.Store
}

// NewListGroupsTool creates a ListGroupsTool.
func NewListGroupsTool(store *store.Store) *ListGroupsTool {
	return &ListGroupsTool{store: store}
}

// Definition returns the MCP tool definition for tabs_list_groups.
func (t *ListGroupsTool) Definition() mcp.Tool {
	return mcp.NewTool("tabs_list_groups",
		mcp.WithDescription("List saved tab groups, newest first."),
		mcp.WithString("label",
			mcp.Description("Only groups whose label contains this text (case-insensitive)"),
		),
		mcp.WithBoolean("include_tabs",
			mcp.Description("Also list each group's tabs (default: false)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max groups (default: 20)"),
		),
	)
}

// Handle processes the tabs_list_groups tool call.
func (t *ListGroupsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groups, err := t.store.AllGroups(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list groups: %v", err)), nil
	}
	groups = render.FilterByLabel(groups, req.GetString("label", ""))
	if len(groups) == 0 {
		return mcp.NewToolResultText("No tab groups found."), nil
	}

	total := len(groups)
	if limit := intArg(req, "limit", 20); limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	withTabs := boolArg(req, "include_tabs", false)

	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d of %d groups:\n\n", len(groups), total)
	for _, g := range groups {
		flags := ""
		if g.Pinned {
			flags += " pinned"
		}
		if g.Starred {
			flags += " starred"
		}
		if g.Locked {
			flags += " locked"
		}
		fmt.Fprintf(&b, "- %s | %s | %d tabs | %s%s\n",
			g.ID, labelOf(g.Label), len(g.Tabs), g.CreatedAt.Format("2006-01-02 15:04"), flags)
		if withTabs {
			for _, tab := range g.Tabs {
				fmt.Fprintf(&b, "    - %s (%s)\n", truncate(tab.Title, 100), tab.URL)
			}
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
