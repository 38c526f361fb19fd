package snapshot

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/tabvault/internal/model"
	"github.com/HendryAvila/tabvault/internal/store"
)

// requireGit skips when git is unavailable and isolates it from user config.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "tabvault test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@tabvault.invalid")
	t.Setenv("GIT_COMMITTER_NAME", "tabvault test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@tabvault.invalid")
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.Config{DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *store.Store, groupID string, urls ...string) {
	t.Helper()
	created := time.Date(2025, 10, 10, 5, 33, 9, 0, time.UTC)
	g := model.TabGroup{ID: groupID, CreatedAt: created}
	for i, u := range urls {
		g.Tabs = append(g.Tabs, model.Tab{ID: groupID + "-" + string(rune('a'+i)), URL: u, Title: u, AddedAt: created})
	}
	sess := model.NewSession(model.BrowserSource("chrome", "Default"))
	sess.Groups = []model.TabGroup{g}
	if _, err := s.InsertSession(context.Background(), sess); err != nil {
		t.Fatal(err)
	}
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	m := New(t.TempDir(), "", nil)
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m
}

func TestParseCommitHash(t *testing.T) {
	tests := []struct {
		out  string
		want string
	}{
		{"[main abc1234] tabvault snapshot\n 1 file changed", "abc1234"},
		{"[master (root-commit) 9f8e7d6] first\n", "9f8e7d6"},
		{"garbage", "unknown"},
		{"[] empty", "unknown"},
	}
	for _, tt := range tests {
		if got := parseCommitHash(tt.out); got != tt.want {
			t.Errorf("parseCommitHash(%q) = %q, want %q", tt.out, got, tt.want)
		}
	}
}

func TestSnapshotListRestore(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	orig := timeNow
	timeNow = func() time.Time { return time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { timeNow = orig }()

	src := newStore(t)
	seed(t, src, "g1", "https://a.com/", "https://b.com/")

	m := newManager(t)
	first, err := m.Snapshot(ctx, src)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if first == "" || first == "unknown" {
		t.Fatalf("hash = %q", first)
	}

	if _, err := m.Snapshot(ctx, src); !errors.Is(err, ErrUnchanged) {
		t.Fatalf("unchanged snapshot err = %v", err)
	}

	seed(t, src, "g2", "https://c.com/")
	second, err := m.Snapshot(ctx, src)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := m.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if !strings.HasPrefix(second, entries[0].Hash) && !strings.HasPrefix(entries[0].Hash, second) {
		t.Errorf("newest entry %q does not match %q", entries[0].Hash, second)
	}
	if entries[0].Message != "tabvault snapshot: 2 groups, 3 tabs (2025-11-01 12:00:00 UTC)" {
		t.Errorf("message = %q", entries[0].Message)
	}

	// Restoring the working-tree snapshot twice is idempotent.
	dst := newStore(t)
	stats, err := m.Restore(ctx, dst)
	if err != nil {
		t.Fatal(err)
	}
	if stats.GroupsInserted != 2 || stats.TabsInserted != 3 {
		t.Errorf("restore stats = %+v", stats)
	}
	stats, err = m.Restore(ctx, dst)
	if err != nil {
		t.Fatal(err)
	}
	if stats.GroupsInserted != 0 || stats.TabsSkipped != 3 {
		t.Errorf("second restore stats = %+v", stats)
	}

	// The first commit only held g1.
	old := newStore(t)
	stats, err = m.RestoreFromCommit(ctx, old, first)
	if err != nil {
		t.Fatal(err)
	}
	if stats.GroupsInserted != 1 || stats.TabsInserted != 2 {
		t.Errorf("restore from %s = %+v", first, stats)
	}
}

func TestSnapshot_NoOpImportLeavesArchiveUnchanged(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	src := newStore(t)
	seed(t, src, "g1", "https://a.com/")

	m := newManager(t)
	if _, err := m.Snapshot(ctx, src); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Runs that add nothing are still recorded; make sure they carry a later
	// timestamp than the seeding run.
	time.Sleep(5 * time.Millisecond)
	seed(t, src, "g1", "https://a.com/")
	if _, err := src.InsertSession(ctx, model.NewSession(model.BrowserSource("chrome", "Default"))); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Snapshot(ctx, src); !errors.Is(err, ErrUnchanged) {
		t.Fatalf("snapshot after no-op imports err = %v, want ErrUnchanged", err)
	}
	entries, err := m.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %+v, want one commit", entries)
	}
}

func TestRestoreFromCommit_RejectsBadRefs(t *testing.T) {
	m := New(t.TempDir(), "", nil)
	for _, ref := range []string{"", "--output=/tmp/x", "abc:other.json", "a b"} {
		if _, err := m.RestoreFromCommit(context.Background(), nil, ref); err == nil {
			t.Errorf("RestoreFromCommit(%q) should fail", ref)
		}
	}
}

func TestRestore_MissingFile(t *testing.T) {
	m := New(t.TempDir(), "", nil)
	if _, err := m.Restore(context.Background(), nil); err == nil {
		t.Error("expected error for missing snapshot file")
	}
}

func TestGitFailureIncludesStderr(t *testing.T) {
	requireGit(t)
	m := New(t.TempDir(), "", nil)
	// Not a repository yet.
	_, err := m.List(context.Background(), 5)
	if err == nil || !strings.Contains(err.Error(), "snapshot: git log") {
		t.Fatalf("err = %v", err)
	}
}

func TestMissingGitBinary(t *testing.T) {
	orig := gitBinary
	gitBinary = "tabvault-no-such-git"
	defer func() { gitBinary = orig }()

	m := New(t.TempDir(), "", nil)
	if err := m.Init(context.Background()); err == nil {
		t.Error("expected error when git is missing")
	}
}
