package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/HendryAvila/tabvault/internal/recovery"
)

// testEnv is one isolated installation: an archive directory plus the
// platform roots browser stores are resolved under.
type testEnv struct {
	dataDir string
	config  string
}

func newEnv(t *testing.T) testEnv {
	t.Helper()
	return testEnv{dataDir: t.TempDir(), config: t.TempDir()}
}

func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := newApp()
	a.goos = "linux"
	a.dirs = func() recovery.BaseDirs { return recovery.BaseDirs{Config: e.config} }

	cmd := a.rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--data-dir", e.dataDir, "--log-level", "error", "--log-pretty=false"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "tabvault %s\n%s", strings.Join(args, " "), out)
	return out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// installStore writes an extension store for b under the env's config root.
func (e testEnv) installStore(t *testing.T, b recovery.Browser, groupID string) string {
	t.Helper()
	path, err := recovery.ResolveStorePath("linux", recovery.BaseDirs{Config: e.config}, b, recovery.DefaultProfile)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))

	db, err := leveldb.OpenFile(path, nil)
	require.NoError(t, err)
	record := `{"tabGroups":[{"id":"` + groupID + `","createDate":1760074389851,"title":"Work","tabsMeta":[` +
		`{"id":"` + groupID + `-1","url":"https://x.com","title":"X"},` +
		`{"id":"` + groupID + `-2","url":"https://y.com/a","title":"Y"},` +
		`{"id":"` + groupID + `-3","url":"not a url","title":"broken"}]}]}`
	require.NoError(t, db.Put([]byte("_chrome-extension://tabs"), []byte(record), nil))
	require.NoError(t, db.Put([]byte("settings"), []byte(`{"theme":"dark"}`), nil))
	require.NoError(t, db.Close())
	return path
}

const pipeExport = "https://a.com/?utm_source=feed | A\nhttps://b.com | B\n\nhttps://a.com/ | A again\n"

// ─── version / init ──────────────────────────────────────────────────────────

func TestVersion(t *testing.T) {
	out := newEnv(t).mustRun(t, "version")
	assert.Contains(t, out, "tabvault dev")
}

func TestInit(t *testing.T) {
	env := newEnv(t)
	out := env.mustRun(t, "init")
	dbPath := filepath.Join(env.dataDir, "tabvault.db")
	assert.Contains(t, out, "archive ready at "+dbPath)
	assert.FileExists(t, dbPath)
}

func TestConfigErrorsStopCommands(t *testing.T) {
	env := newEnv(t)
	_, err := env.run(t, "--log-level", "trace", "stats")
	assert.ErrorContains(t, err, "log.level")

	_, err = env.run(t, "import", "--dedup", "by-vibes", writeFile(t, "tabs.txt", pipeExport))
	assert.ErrorContains(t, err, "unknown strategy")
}

// ─── import / export ─────────────────────────────────────────────────────────

func TestImportIsIdempotent(t *testing.T) {
	env := newEnv(t)
	path := writeFile(t, "tabs.txt", pipeExport)

	out := env.mustRun(t, "import", path)
	assert.Contains(t, out, path+" (pipe export)")
	assert.Contains(t, out, "imported 2 groups, 3 tabs; already present 0 groups, 0 tabs")

	out = env.mustRun(t, "import", path)
	assert.Contains(t, out, "imported 0 groups, 0 tabs; already present 2 groups, 3 tabs")

	out = env.mustRun(t, "list")
	assert.Contains(t, out, "pipe-import-0")
	assert.Contains(t, out, "pipe-import-1")

	out = env.mustRun(t, "runs")
	assert.Contains(t, out, "export_file:"+path)
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, "0/2")

	out = env.mustRun(t, "stats")
	assert.Contains(t, out, "Groups:      2")
	assert.Contains(t, out, "Tabs:        3")
	assert.Contains(t, out, "Import runs: 2")
	assert.Contains(t, out, "a.com")
}

func TestImportDryRunWritesNothing(t *testing.T) {
	env := newEnv(t)
	out := env.mustRun(t, "import", "--dry-run", "--normalize", "--dedup", "normalized-url", writeFile(t, "tabs.txt", pipeExport))
	assert.Contains(t, out, "normalized titles and URLs")
	assert.Contains(t, out, "dedup normalized-url: 3 → 2 tabs (1 removed)")
	assert.Contains(t, out, "dry run, nothing imported")

	assert.Contains(t, env.mustRun(t, "stats"), "Groups:      0")
}

func TestImportRejectsFuzzyDedup(t *testing.T) {
	env := newEnv(t)
	_, err := env.run(t, "import", "--dedup", "fuzzy-url", writeFile(t, "tabs.txt", pipeExport))
	assert.Error(t, err)
}

func TestExportJSONReimportsIntoFreshArchive(t *testing.T) {
	src := newEnv(t)
	src.mustRun(t, "import", writeFile(t, "tabs.txt", pipeExport))

	exported := filepath.Join(t.TempDir(), "archive.json")
	src.mustRun(t, "export", "--format", "json", "-o", exported)
	require.FileExists(t, exported)

	dst := newEnv(t)
	out := dst.mustRun(t, "import", exported)
	assert.Contains(t, out, "(json session)")
	assert.Contains(t, out, "imported 2 groups, 3 tabs")
}

func TestExportMarkdownAndYAML(t *testing.T) {
	env := newEnv(t)
	env.mustRun(t, "import", writeFile(t, "tabs.txt", pipeExport))

	md := env.mustRun(t, "export", "-f", "md")
	assert.Contains(t, md, "## 2 tabs")
	assert.Contains(t, md, "[B](https://b.com/)")

	yml := env.mustRun(t, "export", "--format", "yaml")
	assert.Contains(t, yml, "groups:")

	_, err := env.run(t, "export", "--format", "csv")
	assert.ErrorContains(t, err, "unknown format")
}

// ─── recover / detect ────────────────────────────────────────────────────────

func TestRecoverFromStorePath(t *testing.T) {
	env := newEnv(t)
	path := env.installStore(t, recovery.Chrome, "grp")

	out := env.mustRun(t, "recover", "--store-path", path)
	assert.Contains(t, out, "chrome/Default ("+path+")")
	assert.Contains(t, out, "skipped 1 tabs with invalid URLs, 0 unreadable records, 0 empty groups")
	assert.Contains(t, out, "imported 1 groups, 2 tabs")

	out = env.mustRun(t, "recover", "--store-path", path)
	assert.Contains(t, out, "already present 1 groups, 2 tabs")
}

func TestRecoverResolvesConfiguredBrowser(t *testing.T) {
	env := newEnv(t)
	env.installStore(t, recovery.Edge, "edge-grp")

	_, err := env.run(t, "recover")
	assert.ErrorIs(t, err, recovery.ErrStoreUnavailable, "chrome store was never installed")

	out := env.mustRun(t, "recover", "--browser", "edge")
	assert.Contains(t, out, "edge/Default")
	assert.Contains(t, out, "imported 1 groups, 2 tabs")
}

func TestRecoverResolveOnly(t *testing.T) {
	env := newEnv(t)
	out := env.mustRun(t, "recover", "--browser", "brave", "--resolve-only")
	want := filepath.Join(env.config, "BraveSoftware", "Brave-Browser", "Default", "Local Extension Settings", recovery.Brave.ExtensionID())
	assert.Equal(t, want+"\n", out)
}

func TestDetectAndRecoverAll(t *testing.T) {
	env := newEnv(t)
	assert.Contains(t, env.mustRun(t, "detect"), "No extension stores found.")

	env.installStore(t, recovery.Chrome, "chrome-grp")
	env.installStore(t, recovery.Edge, "edge-grp")

	out := env.mustRun(t, "detect")
	assert.Contains(t, out, "Chrome")
	assert.Contains(t, out, "Edge")

	out = env.mustRun(t, "recover", "--all")
	assert.Contains(t, out, "chrome/Default")
	assert.Contains(t, out, "edge/Default")
	assert.Equal(t, 2, strings.Count(out, "imported 1 groups, 2 tabs"))
}

// ─── search / list / add / delete ────────────────────────────────────────────

func TestSearchModes(t *testing.T) {
	env := newEnv(t)
	env.mustRun(t, "import", writeFile(t, "tabs.txt", pipeExport))

	assert.Contains(t, env.mustRun(t, "search", "again"), "A again")
	assert.Contains(t, env.mustRun(t, "search", "--mode", "url", "b.com"), "https://b.com/")
	assert.Contains(t, env.mustRun(t, "search", "-m", "title", "again"), "https://a.com/")
	assert.Contains(t, env.mustRun(t, "search", "-m", "fuzzy", "--field", "url", "bcom"), "Score")
	assert.Contains(t, env.mustRun(t, "search", "-m", "url", "nothing-like-this"), "No tabs found.")

	_, err := env.run(t, "search", "-m", "regex", "x")
	assert.ErrorContains(t, err, "unknown mode")
}

func TestAddListDelete(t *testing.T) {
	env := newEnv(t)

	out := env.mustRun(t, "add", "--label", "Reading", "https://go.dev", "https://example.com/post")
	m := regexp.MustCompile(`added group (\S+) with 2 tabs`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	out = env.mustRun(t, "list", "--label", "read")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Reading")

	out = env.mustRun(t, "list", "--tabs")
	assert.Contains(t, out, "https://go.dev/")

	assert.Contains(t, env.mustRun(t, "delete", id), "deleted "+id)
	assert.Contains(t, env.mustRun(t, "list"), "No tab groups found.")

	_, err := env.run(t, "delete", id)
	assert.ErrorContains(t, err, "no group with id")

	_, err = env.run(t, "add", "not a url")
	assert.ErrorContains(t, err, "invalid URL")
}

// ─── dedup ───────────────────────────────────────────────────────────────────

func TestDedupPreviewThenApply(t *testing.T) {
	env := newEnv(t)
	env.mustRun(t, "import", writeFile(t, "tabs.txt", pipeExport))

	out := env.mustRun(t, "dedup", "-v")
	assert.Contains(t, out, "normalized-url: 3 tabs, would remove 1 duplicates (2 remain)")
	assert.Contains(t, out, "--apply")

	out = env.mustRun(t, "dedup", "--apply")
	assert.Contains(t, out, "removed 1 duplicates")

	out = env.mustRun(t, "dedup")
	assert.Contains(t, out, "would remove 0 duplicates")
	assert.Contains(t, env.mustRun(t, "stats"), "Tabs:        2")

	// Re-importing the source must not bring the duplicate back.
	out = env.mustRun(t, "import", writeFile(t, "tabs.txt", pipeExport))
	assert.Contains(t, out, "imported 0 groups, 0 tabs")

	_, err := env.run(t, "dedup", "-s", "fuzzy-url", "--apply")
	assert.ErrorContains(t, err, "can only be previewed")

	out = env.mustRun(t, "dedup", "-s", "fuzzy-url", "--threshold", "0.5")
	assert.Contains(t, out, "fuzzy-url: 2 tabs")
}

// ─── snapshots ───────────────────────────────────────────────────────────────

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "tabvault")
	t.Setenv("GIT_AUTHOR_EMAIL", "tabvault@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "tabvault")
	t.Setenv("GIT_COMMITTER_EMAIL", "tabvault@example.com")
	t.Setenv("TABVAULT_SNAPSHOT_DIR", filepath.Join(t.TempDir(), "repo"))

	src := newEnv(t)
	src.mustRun(t, "import", writeFile(t, "tabs.txt", pipeExport))

	out := src.mustRun(t, "snapshot")
	assert.Regexp(t, `snapshot \S+ written to `, out)
	assert.Contains(t, src.mustRun(t, "snapshot"), "archive unchanged")
	assert.Contains(t, src.mustRun(t, "snapshots"), "tabvault snapshot: 2 groups, 3 tabs")

	dst := newEnv(t)
	out = dst.mustRun(t, "restore")
	assert.Contains(t, out, "restored 2 groups, 3 tabs; already present 0 groups, 0 tabs")
	out = dst.mustRun(t, "restore")
	assert.Contains(t, out, "restored 0 groups, 0 tabs; already present 2 groups, 3 tabs")

	_, err := dst.run(t, "restore", "--commit", "HEAD:other.json")
	assert.ErrorContains(t, err, "invalid commit")
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n b\tc", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestGroupFlags(t *testing.T) {
	assert.Equal(t, "", groupFlags(false, false, false))
	assert.Equal(t, "pinned,locked", groupFlags(true, false, true))
}
