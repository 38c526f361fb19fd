// Package prompts implements MCP prompt handlers for tabvault.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// TriagePrompt handles the tabvault-triage MCP prompt.
// It walks the AI through reviewing the archive and cleaning up duplicates.
type TriagePrompt struct{}

// NewTriagePrompt creates a TriagePrompt.
func NewTriagePrompt() *TriagePrompt {
	return &TriagePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *TriagePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("tabvault-triage",
		mcp.WithPromptDescription(
			"Review your saved tabs: see what is archived, find duplicates, "+
				"and pick out groups worth revisiting.",
		),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Optional subject to focus on, e.g. 'rust' or 'travel'"),
		),
	)
}

// Handle processes the tabvault-triage prompt request.
func (p *TriagePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := ""
	if args := req.Params.Arguments; args != nil {
		topic = strings.TrimSpace(args["topic"])
	}

	focus := "2. Run `tabs_list_groups` with limit=10 to see the most recent groups\n"
	description := "Triage saved tabs"
	if topic != "" {
		focus = fmt.Sprintf("2. Run `tabs_search` with query='%s' and summarize what I saved about it\n", topic)
		description = fmt.Sprintf("Triage saved tabs about %s", topic)
	}

	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Help me triage my saved browser tabs.\n\n" +
						"Please:\n" +
						"1. Run `tabs_stats` and tell me how big the archive is and which sites dominate it\n" +
						focus +
						"3. Run `tabs_dedup_preview` with strategy='normalized-url' and tell me how many duplicates there are\n" +
						"4. Point out groups that look stale or redundant and suggest which to keep\n" +
						"5. Do not delete anything; just give me the list",
				),
			},
		},
	}, nil
}
