// tabvault: recover, deduplicate, and archive browser tab groups.
//
// Tab groups are read from a browser extension's on-disk storage (or from
// its text exports), normalized into one model, and imported into a local
// SQLite archive exactly once per group and tab.
//
// Usage:
//
//	tabvault recover           # Import tab groups from Chrome's default profile
//	tabvault import FILE...    # Import pipe, markdown, or JSON exports
//	tabvault search QUERY      # Full-text search over archived tabs
//	tabvault serve             # Start the MCP server (stdio transport)
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := 0
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		code = 1
	}
	stop()
	os.Exit(code)
}
