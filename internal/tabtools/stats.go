package tabtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/tabvault/internal/store"
)

// StatsTool handles the tabs_stats MCP tool.
type StatsTool struct {
	store *store.Store
}

// NewStatsTool creates a StatsTool with the given store.
func NewStatsTool(store *store.Store) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for tabs_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("tabs_stats",
		mcp.WithDescription(
			"Show archive statistics: total groups and tabs, date range, import runs, and top domains.",
		),
	)
}

// Handle processes the tabs_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("## Tab Archive Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- **Groups**: %d\n", stats.TotalGroups))
	sb.WriteString(fmt.Sprintf("- **Tabs**: %d\n", stats.TotalTabs))
	sb.WriteString(fmt.Sprintf("- **Import runs**: %d\n", stats.ImportRuns))
	if stats.Oldest != nil && stats.Newest != nil {
		sb.WriteString(fmt.Sprintf("- **Range**: %s → %s\n",
			stats.Oldest.Format("2006-01-02"), stats.Newest.Format("2006-01-02")))
	}

	if len(stats.TopDomains) > 0 {
		sb.WriteString("\n### Top domains\n\n")
		for _, d := range stats.TopDomains {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", d.Domain, d.Count))
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}
