package tabtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/tabvault/internal/search"
	"github.com/HendryAvila/tabvault/internal/store"
)

// SearchTool handles the tabs_search MCP tool.
type SearchTool struct {
	store *store.Store
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(store *store.Store) *SearchTool {
	return &SearchTool{store: store}
}

// Definition returns the MCP tool definition for tabs_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("tabs_search",
		mcp.WithDescription(
			"Search saved tabs by title and URL. Full-text mode matches whole words; "+
				"fuzzy mode matches scattered characters and tolerates typos in the query.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Words to look for"),
		),
		mcp.WithString("mode",
			mcp.Description("fts (default) or fuzzy"),
		),
		mcp.WithString("field",
			mcp.Description("Fuzzy mode only: title, url, or all (default)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the tabs_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := intArg(req, "limit", 10)

	var b strings.Builder
	switch mode := req.GetString("mode", "fts"); mode {
	case "fts", "":
		results, err := t.store.Search(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(results) == 0 {
			return mcp.NewToolResultText("No tabs found matching your query."), nil
		}
		fmt.Fprintf(&b, "Found %d tabs:\n\n", len(results))
		for i, r := range results {
			fmt.Fprintf(&b, "[%d] %s\n    %s\n    group: %s (%s)\n\n",
				i+1, truncate(r.Tab.Title, 120), r.Tab.URL, r.GroupID, labelOf(r.GroupLabel))
		}

	case "fuzzy":
		field, err := search.ParseField(req.GetString("field", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		session, err := t.store.Session(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load archive: %v", err)), nil
		}
		results := search.Tabs(session, query, field, limit)
		if len(results) == 0 {
			return mcp.NewToolResultText("No tabs found matching your query."), nil
		}
		fmt.Fprintf(&b, "Found %d tabs:\n\n", len(results))
		for i, r := range results {
			fmt.Fprintf(&b, "[%d] %s\n    %s\n    group: %s | score: %d\n\n",
				i+1, truncate(r.Tab.Title, 120), r.Tab.URL, r.GroupID, r.Score)
		}

	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q (want fts or fuzzy)", mode)), nil
	}

	return mcp.NewToolResultText(b.String()), nil
}
