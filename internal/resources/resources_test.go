package resources

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/tabvault/internal/model"
	"github.com/HendryAvila/tabvault/internal/store"
)

type fakeStats struct {
	stats *store.Stats
	err   error
}

func (f fakeStats) Stats(context.Context) (*store.Stats, error) { return f.stats, f.err }

func readReq() mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = StatsURI
	return req
}

func TestStatsResource_Definition(t *testing.T) {
	res := NewHandler(fakeStats{}).StatsResource()
	if res.URI != StatsURI {
		t.Errorf("URI = %q", res.URI)
	}
	if res.MIMEType != "application/json" {
		t.Errorf("MIMEType = %q", res.MIMEType)
	}
}

func TestHandleStats(t *testing.T) {
	h := NewHandler(fakeStats{stats: &store.Stats{
		TotalGroups: 3,
		TotalTabs:   7,
		TopDomains:  []model.DomainCount{{Domain: "go.dev", Count: 4}},
	}})

	contents, err := h.HandleStats(context.Background(), readReq())
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	text := contents[0].(mcp.TextResourceContents)
	if text.MIMEType != "application/json" || text.URI != StatsURI {
		t.Errorf("content = %+v", text)
	}

	var got store.Stats
	if err := json.Unmarshal([]byte(text.Text), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.TotalGroups != 3 || got.TotalTabs != 7 || got.TopDomains[0].Domain != "go.dev" {
		t.Errorf("stats = %+v", got)
	}
}

func TestHandleStats_Error(t *testing.T) {
	h := NewHandler(fakeStats{err: errors.New("database is locked")})

	contents, err := h.HandleStats(context.Background(), readReq())
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents)
	if text.MIMEType != "text/plain" || !strings.Contains(text.Text, "database is locked") {
		t.Errorf("content = %+v", text)
	}
}
