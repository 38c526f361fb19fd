package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HendryAvila/tabvault/internal/dedup"
	"github.com/HendryAvila/tabvault/internal/model"
	"github.com/HendryAvila/tabvault/internal/store"
)

var created = time.Date(2025, 10, 10, 5, 33, 9, 0, time.UTC)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.Config{DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func dupSession() *model.Session {
	s := model.NewSession(model.ExportFileSource("/tmp/tabs.txt"))
	s.Groups = []model.TabGroup{
		{ID: "g1", CreatedAt: created, Tabs: []model.Tab{
			{ID: "t1", URL: "https://example.com/post", Title: "Post - YouTube", AddedAt: created},
			{ID: "t2", URL: "https://example.com/post?utm_source=twitter", Title: "Post", AddedAt: created},
		}},
		{ID: "g2", CreatedAt: created, Tabs: []model.Tab{
			{ID: "t3", URL: "https://Example.com/post/#top", Title: "Post", AddedAt: created},
			{ID: "t4", URL: "https://go.dev/", Title: "Go", AddedAt: created},
		}},
	}
	return s
}

func TestIngest_NormalizeDedupImport(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	input := dupSession()
	policy := dedup.Policy{Strategy: dedup.NormalizedURL}

	out, report, err := Ingest(ctx, st, input, Options{Normalize: true, Dedup: &policy})
	if err != nil {
		t.Fatal(err)
	}
	if !report.Normalized || report.Dedup == nil || report.Dedup.Removed != 2 {
		t.Fatalf("report = %+v", report)
	}
	if report.Tabs != 2 || report.Import.TabsInserted != 2 || report.Import.GroupsInserted != 2 {
		t.Errorf("report = %+v, import = %+v", report, report.Import)
	}
	if out.Groups[0].Tabs[0].Title != "Post" {
		t.Errorf("title not normalized: %q", out.Groups[0].Tabs[0].Title)
	}
	if input.Groups[0].Tabs[0].Title != "Post - YouTube" {
		t.Error("input session was modified")
	}

	_, again, err := Ingest(ctx, st, input, Options{Normalize: true, Dedup: &policy})
	if err != nil {
		t.Fatal(err)
	}
	if again.Import.GroupsInserted != 0 || again.Import.TabsSkipped != 2 {
		t.Errorf("second ingest = %+v", again.Import)
	}
}

func TestIngest_DryRunDoesNotImport(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, report, err := Ingest(ctx, st, dupSession(), Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.Import != nil || report.Tabs != 4 {
		t.Errorf("report = %+v", report)
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalTabs != 0 {
		t.Errorf("dry run imported %d tabs", stats.TotalTabs)
	}
}

func TestIngest_FuzzyOnlyAsPreview(t *testing.T) {
	st := newTestStore(t)
	policy := dedup.Policy{Strategy: dedup.FuzzyURL, Threshold: 0.9}

	if _, _, err := Ingest(context.Background(), st, dupSession(), Options{Dedup: &policy}); !errors.Is(err, ErrRestructuringPolicy) {
		t.Errorf("err = %v, want ErrRestructuringPolicy", err)
	}
	out, _, err := Ingest(context.Background(), st, dupSession(), Options{Dedup: &policy, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Groups) != 1 || out.Groups[0].ID != dedup.FuzzyGroupID {
		t.Errorf("fuzzy preview groups = %+v", out.Groups)
	}
}

func TestIngest_ImportFailure(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := Ingest(context.Background(), failingImporter{boom}, dupSession(), Options{})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

type failingImporter struct{ err error }

func (f failingImporter) InsertSession(context.Context, *model.Session) (*store.InsertStats, error) {
	return nil, f.err
}

func TestApplyDedup(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	if _, err := st.InsertSession(ctx, dupSession()); err != nil {
		t.Fatal(err)
	}
	policy := dedup.Policy{Strategy: dedup.NormalizedURL}

	preview, err := ApplyDedup(ctx, st, policy, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(preview.Removed) != 2 {
		t.Fatalf("preview removed %d", len(preview.Removed))
	}
	if stats, _ := st.Stats(ctx); stats.TotalTabs != 4 {
		t.Fatalf("dry run changed the archive: %+v", stats)
	}

	res, err := ApplyDedup(ctx, st, policy, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.DeduplicatedCount != 2 {
		t.Errorf("deduplicated = %d", res.DeduplicatedCount)
	}
	g2, err := st.TabsForGroup(ctx, "g2")
	if err != nil {
		t.Fatal(err)
	}
	if len(g2) != 1 || g2[0].ID != "t4" {
		t.Errorf("g2 tabs = %+v", g2)
	}

	// A second pass has nothing left to remove.
	res, err = ApplyDedup(ctx, st, policy, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Removed) != 0 {
		t.Errorf("second pass removed %d", len(res.Removed))
	}

	if _, err := ApplyDedup(ctx, st, dedup.Policy{Strategy: dedup.FuzzyURL, Threshold: 0.5}, false, nil); !errors.Is(err, ErrRestructuringPolicy) {
		t.Errorf("fuzzy apply err = %v", err)
	}
}
