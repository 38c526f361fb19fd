package tabtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/dedup"
	"github.com/HendryAvila/tabvault/internal/exportfile"
	"github.com/HendryAvila/tabvault/internal/model"
	"github.com/HendryAvila/tabvault/internal/pipeline"
	"github.com/HendryAvila/tabvault/internal/recovery"
	"github.com/HendryAvila/tabvault/internal/store"
)

// ingestOptions reads the arguments shared by tabs_recover and
// tabs_import_export.
func ingestOptions(req mcp.CallToolRequest, log *zap.Logger) (pipeline.Options, error) {
	opts := pipeline.Options{
		Normalize: boolArg(req, "normalize", false),
		DryRun:    boolArg(req, "dry_run", false),
		Log:       log,
	}
	if name := req.GetString("dedup", ""); name != "" {
		strategy, err := dedup.ParseStrategy(name)
		if err != nil {
			return opts, err
		}
		opts.Dedup = &dedup.Policy{Strategy: strategy, Threshold: floatArg(req, "threshold", dedup.DefaultThreshold)}
	}
	return opts, nil
}

func withIngestArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithBoolean("normalize",
			mcp.Description("Canonicalize titles and URLs before importing (default: false)"),
		),
		mcp.WithString("dedup",
			mcp.Description("Remove duplicates before importing: exact-url, normalized-url, or url-and-title"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Report what would be imported without writing (default: false)"),
		),
	}
}

func runIngest(ctx context.Context, st *store.Store, session *model.Session, opts pipeline.Options, header string) *mcp.CallToolResult {
	_, report, err := pipeline.Ingest(ctx, st, session, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("import failed: %v", err))
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString(sourceLine(session.Source))
	b.WriteString("\n")
	writeIngestReport(&b, report)
	return mcp.NewToolResultText(b.String())
}

// ─── RecoverTool ────────────────────────────────────────────────────────────

// RecoverTool handles the tabs_recover MCP tool.
type RecoverTool struct {
	store *store.Store
	base  recovery.Options
	log   *zap.Logger
}

// NewRecoverTool creates a RecoverTool. base supplies the platform and base
// directories used for path resolution.
func NewRecoverTool(store *store.Store, base recovery.Options, log *zap.Logger) *RecoverTool {
	if log == nil {
		log = zap.NewNop()
	}
	base.Logger = log
	if base.Browser == "" {
		base.Browser = recovery.Chrome
	}
	return &RecoverTool{store: store, base: base, log: log}
}

// Definition returns the MCP tool definition for tabs_recover.
func (t *RecoverTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Recover tab groups from a browser's extension storage and import them into the archive. "+
				"Safe to run while the browser is open and safe to repeat: groups already archived are skipped.",
		),
		mcp.WithString("browser",
			mcp.Description("chrome (default), edge, brave, or comet"),
		),
		mcp.WithString("profile",
			mcp.Description("Browser profile directory (default: Default)"),
		),
		mcp.WithString("store_path",
			mcp.Description("Read this extension storage directory instead of resolving one"),
		),
	}
	return mcp.NewTool("tabs_recover", append(opts, withIngestArgs()...)...)
}

// Handle processes the tabs_recover tool call.
func (t *RecoverTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := t.base
	if name := req.GetString("browser", ""); name != "" {
		b, err := recovery.ParseBrowser(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts.Browser = b
	}
	if p := req.GetString("profile", ""); p != "" {
		opts.Profile = p
	}
	if p := req.GetString("store_path", ""); p != "" {
		opts.StorePath = p
	}

	ingest, err := ingestOptions(req, t.log)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := recovery.Recover(opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recovery failed: %v", err)), nil
	}

	header := fmt.Sprintf("## Recovered from %s\n\nStore: %s\n", opts.Browser.DisplayName(), res.Path)
	if r := res.Report; r.SkippedTabs > 0 || r.SkippedEntries > 0 || r.DroppedGroups > 0 {
		header += fmt.Sprintf("Skipped: %d tabs with invalid URLs, %d unreadable records, %d empty groups\n",
			r.SkippedTabs, r.SkippedEntries, r.DroppedGroups)
	}
	if res.Copied {
		header += "Store was locked; a copy was read.\n"
	}
	return runIngest(ctx, t.store, res.Session, ingest, header), nil
}

// ─── ImportExportTool ───────────────────────────────────────────────────────

// ImportExportTool handles the tabs_import_export MCP tool.
type ImportExportTool struct {
	store *store.Store
	log   *zap.Logger
}

// NewImportExportTool creates an ImportExportTool.
func NewImportExportTool(store *store.Store, log *zap.Logger) *ImportExportTool {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImportExportTool{store: store, log: log}
}

// Definition returns the MCP tool definition for tabs_import_export.
func (t *ImportExportTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Import a text export of the tab-group extension (pipe list or markdown). "+
				"The format is detected automatically. Re-importing the same file adds nothing.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the export file"),
		),
	}
	return mcp.NewTool("tabs_import_export", append(opts, withIngestArgs()...)...)
}

// Handle processes the tabs_import_export tool call.
func (t *ImportExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := strings.TrimSpace(req.GetString("path", ""))
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	ingest, err := ingestOptions(req, t.log)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, report, err := exportfile.Parser{Log: t.log}.ParseFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read export: %v", err)), nil
	}

	header := fmt.Sprintf("## Imported %s export\n\n", report.Format)
	if report.SkippedLines > 0 {
		header += fmt.Sprintf("Skipped: %d lines with invalid URLs\n", report.SkippedLines)
	}
	return runIngest(ctx, t.store, session, ingest, header), nil
}
