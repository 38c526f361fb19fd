// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it receives the concrete store and settings
// and injects them into the tools, prompts, and resources that use them.
// No business logic lives here, only wiring.
package server

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/dedup"
	"github.com/HendryAvila/tabvault/internal/prompts"
	"github.com/HendryAvila/tabvault/internal/recovery"
	"github.com/HendryAvila/tabvault/internal/resources"
	"github.com/HendryAvila/tabvault/internal/store"
	"github.com/HendryAvila/tabvault/internal/tabtools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Options carries the settings tools fall back on when a request omits them.
type Options struct {
	Recovery recovery.Options
	Dedup    dedup.Policy
	Log      *zap.Logger
}

// New creates the MCP server with every tool, prompt, and resource
// registered. The caller owns st and closes it after the server stops.
func New(st *store.Store, opts Options) *server.MCPServer {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := server.NewMCPServer(
		"tabvault",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tab tools ---

	searchTool := tabtools.NewSearchTool(st)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	listTool := tabtools.NewListGroupsTool(st)
	s.AddTool(listTool.Definition(), listTool.Handle)

	statsTool := tabtools.NewStatsTool(st)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	recoverTool := tabtools.NewRecoverTool(st, opts.Recovery, log.Named("recover"))
	s.AddTool(recoverTool.Definition(), recoverTool.Handle)

	importTool := tabtools.NewImportExportTool(st, log.Named("import"))
	s.AddTool(importTool.Definition(), importTool.Handle)

	dedupTool := tabtools.NewDedupPreviewTool(st, opts.Dedup)
	s.AddTool(dedupTool.Definition(), dedupTool.Handle)

	// --- Register prompts ---

	triagePrompt := prompts.NewTriagePrompt()
	s.AddPrompt(triagePrompt.Definition(), triagePrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(st)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)

	log.Debug("mcp server ready", zap.String("version", Version))
	return s
}

// Serve runs s over stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// serverInstructions tells the AI how to use tabvault.
func serverInstructions() string {
	return `You have access to tabvault, an archive of the user's saved browser tab groups.

## Tools
- tabs_search: find tabs by words in their title or URL (mode=fuzzy tolerates typos)
- tabs_list_groups: browse groups newest first, optionally filtered by label
- tabs_stats: archive size, date range, and the most common sites
- tabs_recover: pull tab groups out of a browser's extension storage into the archive
- tabs_import_export: import a text export file (pipe list or markdown)
- tabs_dedup_preview: show which tabs a dedup strategy would remove

## Rules
- Recovery and import are idempotent. Running them again never duplicates groups.
- tabs_recover works while the browser is open; it reads a copy if the store is locked.
- Nothing here deletes tabs. Dedup is preview only; the user applies it from the CLI.
- Report skipped counts to the user: they mean some records could not be read.`
}
