package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, r *mcp.GetPromptResult) string {
	t.Helper()
	if len(r.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(r.Messages))
	}
	tc, ok := r.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", r.Messages[0].Content)
	}
	return tc.Text
}

func TestTriagePrompt_Definition(t *testing.T) {
	def := NewTriagePrompt().Definition()
	if def.Name != "tabvault-triage" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.Arguments) != 1 || def.Arguments[0].Name != "topic" {
		t.Errorf("arguments = %+v", def.Arguments)
	}
}

func TestTriagePrompt_Default(t *testing.T) {
	r, err := NewTriagePrompt().Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text := promptText(t, r)
	if !strings.Contains(text, "tabs_list_groups") || !strings.Contains(text, "tabs_dedup_preview") {
		t.Errorf("prompt = %s", text)
	}
	if r.Messages[0].Role != mcp.RoleUser {
		t.Errorf("role = %q", r.Messages[0].Role)
	}
}

func TestTriagePrompt_WithTopic(t *testing.T) {
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"topic": "rust"}

	r, err := NewTriagePrompt().Handle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(promptText(t, r), "tabs_search` with query='rust'") {
		t.Errorf("prompt = %s", promptText(t, r))
	}
	if r.Description != "Triage saved tabs about rust" {
		t.Errorf("description = %q", r.Description)
	}
}
