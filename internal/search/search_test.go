package search

import (
	"testing"

	"github.com/HendryAvila/tabvault/internal/model"
)

func fixture() *model.Session {
	return &model.Session{
		Version: model.FormatVersion,
		Groups: []model.TabGroup{
			{ID: "g1", Tabs: []model.Tab{
				{ID: "t1", URL: "https://doc.rust-lang.org/book/", Title: "Rust Book"},
				{ID: "t2", URL: "https://go.dev/tour", Title: "Go Tour"},
			}},
			{ID: "g2", Tabs: []model.Tab{
				{ID: "t3", URL: "https://crates.io/", Title: "Crates"},
			}},
		},
	}
}

func resultIDs(rs []Result) []string {
	var out []string
	for _, r := range rs {
		out = append(out, r.Tab.ID)
	}
	return out
}

func TestTabsByTitle(t *testing.T) {
	got := Tabs(fixture(), "rust", FieldTitle, 0)
	if len(got) != 1 || got[0].Tab.ID != "t1" || got[0].GroupID != "g1" {
		t.Fatalf("results = %v", resultIDs(got))
	}
}

func TestTabsByURL(t *testing.T) {
	got := Tabs(fixture(), "crates", FieldURL, 0)
	if len(got) != 1 || got[0].Tab.ID != "t3" || got[0].GroupID != "g2" {
		t.Fatalf("results = %v", resultIDs(got))
	}
}

func TestTabsAllFieldsRanksBestFirst(t *testing.T) {
	got := Tabs(fixture(), "go", FieldAll, 0)
	if len(got) != 2 {
		t.Fatalf("results = %v, want 2", resultIDs(got))
	}
	if got[0].Tab.ID != "t2" {
		t.Errorf("best match = %s, want t2", got[0].Tab.ID)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("results not sorted by score: %d < %d", got[0].Score, got[1].Score)
	}

	limited := Tabs(fixture(), "go", FieldAll, 1)
	if len(limited) != 1 || limited[0].Tab.ID != "t2" {
		t.Errorf("limited = %v", resultIDs(limited))
	}
}

func TestTabsEmptyQuery(t *testing.T) {
	if got := Tabs(fixture(), "   ", FieldAll, 0); got != nil {
		t.Errorf("empty query returned %v", resultIDs(got))
	}
}

func TestParseField(t *testing.T) {
	for in, want := range map[string]Field{"": FieldAll, "TITLE": FieldTitle, "url": FieldURL, "all": FieldAll} {
		got, err := ParseField(in)
		if err != nil || got != want {
			t.Errorf("ParseField(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseField("body"); err == nil {
		t.Error("expected error")
	}
}
