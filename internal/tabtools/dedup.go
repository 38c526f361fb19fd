package tabtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/tabvault/internal/dedup"
	"github.com/HendryAvila/tabvault/internal/pipeline"
	"github.com/HendryAvila/tabvault/internal/store"
)

// maxRemovedShown caps the removed tabs listed in a preview.
const maxRemovedShown = 25

// DedupPreviewTool handles the tabs_dedup_preview MCP tool.
type DedupPreviewTool struct {
	store  *store.Store
	policy dedup.Policy
}

// NewDedupPreviewTool creates a DedupPreviewTool. policy is used when the
// request does not name a strategy.
func NewDedupPreviewTool(store *store.Store, policy dedup.Policy) *DedupPreviewTool {
	return &DedupPreviewTool{store: store, policy: policy}
}

// Definition returns the MCP tool definition for tabs_dedup_preview.
func (t *DedupPreviewTool) Definition() mcp.Tool {
	return mcp.NewTool("tabs_dedup_preview",
		mcp.WithDescription(
			"Show which archived tabs a dedup strategy would remove. Read-only: nothing is deleted.",
		),
		mcp.WithString("strategy",
			mcp.Description("exact-url, normalized-url, url-and-title, or fuzzy-url"),
		),
		mcp.WithNumber("threshold",
			mcp.Description("fuzzy-url similarity in [0,1] (default: 0.9)"),
		),
	)
}

// Handle processes the tabs_dedup_preview tool call.
func (t *DedupPreviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	policy := t.policy
	if name := req.GetString("strategy", ""); name != "" {
		s, err := dedup.ParseStrategy(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		policy.Strategy = s
	}
	policy.Threshold = floatArg(req, "threshold", policy.Threshold)

	res, err := pipeline.ApplyDedup(ctx, t.store, policy, true, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("dedup failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Dedup preview (%s)\n\n", policy.Strategy)
	fmt.Fprintf(&b, "- **Before**: %d tabs\n", res.OriginalCount)
	fmt.Fprintf(&b, "- **After**: %d tabs\n", res.DeduplicatedCount)
	fmt.Fprintf(&b, "- **Would remove**: %d tabs\n", len(res.Removed))
	if policy.Strategy == dedup.FuzzyURL {
		b.WriteString("\nNote: fuzzy-url merges every group into one, so it is available as a preview only.\n")
	}

	if len(res.Removed) > 0 {
		b.WriteString("\n### Duplicates\n\n")
		for i, tab := range res.Removed {
			if i == maxRemovedShown {
				fmt.Fprintf(&b, "- ... and %d more\n", len(res.Removed)-maxRemovedShown)
				break
			}
			fmt.Fprintf(&b, "- %s (%s)\n", truncate(tab.Title, 100), tab.URL)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
