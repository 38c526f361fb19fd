// Package resources implements MCP resource handlers for the tab archive.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (tabvault://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/tabvault/internal/store"
)

// StatsURI addresses the archive statistics resource.
const StatsURI = "tabvault://store/stats"

// StatsSource supplies archive statistics.
type StatsSource interface {
	Stats(ctx context.Context) (*store.Stats, error)
}

// Handler manages tabvault resource endpoints.
type Handler struct {
	stats StatsSource
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(stats StatsSource) *Handler {
	return &Handler{stats: stats}
}

// StatsResource returns the MCP resource definition for archive statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		StatsURI,
		"Tab Archive Statistics",
		mcp.WithResourceDescription("Group and tab totals, date range, import runs, and top domains"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the archive statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := h.stats.Stats(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling stats: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
