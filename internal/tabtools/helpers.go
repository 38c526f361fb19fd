// Package tabtools provides MCP tool handlers over the tab archive.
//
// Each tool follows the same pattern:
// - A struct with its dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Handlers report failures as tool errors (mcp.NewToolResultError) rather
// than protocol errors, so the client sees the message.
package tabtools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/tabvault/internal/model"
	"github.com/HendryAvila/tabvault/internal/pipeline"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// floatArg extracts a number argument from a tool request.
func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

func labelOf(label *string) string {
	if label == nil || *label == "" {
		return "(unlabeled)"
	}
	return *label
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// writeIngestReport renders a pipeline report shared by the recover and
// import tools.
func writeIngestReport(b *strings.Builder, r *pipeline.Report) {
	fmt.Fprintf(b, "- **Groups**: %d\n", r.Groups)
	fmt.Fprintf(b, "- **Tabs**: %d\n", r.Tabs)
	if r.Normalized {
		b.WriteString("- **Normalized**: yes\n")
	}
	if d := r.Dedup; d != nil {
		fmt.Fprintf(b, "- **Dedup** (%s): %d → %d tabs, %d removed\n",
			d.Strategy, d.OriginalCount, d.DeduplicatedCount, d.Removed)
	}
	if s := r.Import; s != nil {
		fmt.Fprintf(b, "- **Imported**: %d groups, %d tabs\n", s.GroupsInserted, s.TabsInserted)
		fmt.Fprintf(b, "- **Already present**: %d groups, %d tabs\n", s.GroupsSkipped, s.TabsSkipped)
	} else {
		b.WriteString("- **Dry run**: nothing imported\n")
	}
}

func sourceLine(s model.Source) string {
	return fmt.Sprintf("Source: %s\n", s.String())
}
