package recovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/HendryAvila/tabvault/internal/model"
)

func TestResolveStorePath(t *testing.T) {
	dirs := BaseDirs{
		Home:      "/Users/ana",
		Config:    "/home/ana/.config",
		LocalData: `C:\Users\ana\AppData\Local`,
	}
	tests := []struct {
		goos    string
		browser Browser
		profile string
		want    string
	}{
		{"windows", Chrome, "Default",
			`C:\Users\ana\AppData\Local\Google\Chrome\User Data\Default\Local Extension Settings\chphlpgkkbolifaimnlloiipkdnihall`},
		{"windows", Edge, "Profile 1",
			`C:\Users\ana\AppData\Local\Microsoft\Edge\User Data\Profile 1\Local Extension Settings\hoimpamkkoehapgenciaoajfkfkpgfop`},
		{"darwin", Brave, "Default",
			"/Users/ana/Library/Application Support/BraveSoftware/Brave-Browser/Default/Local Extension Settings/chphlpgkkbolifaimnlloiipkdnihall"},
		{"darwin", Comet, "Default",
			"/Users/ana/Library/Application Support/Perplexity/Comet/Default/Local Extension Settings/chphlpgkkbolifaimnlloiipkdnihall"},
		{"linux", Chrome, "Default",
			"/home/ana/.config/google-chrome/Default/Local Extension Settings/chphlpgkkbolifaimnlloiipkdnihall"},
		{"linux", Edge, "Default",
			"/home/ana/.config/microsoft-edge/Default/Local Extension Settings/hoimpamkkoehapgenciaoajfkfkpgfop"},
		{"freebsd", Brave, "Profile 1",
			"/home/ana/.config/BraveSoftware/Brave-Browser/Profile 1/Local Extension Settings/chphlpgkkbolifaimnlloiipkdnihall"},
		{"linux", Comet, "Default",
			"/home/ana/.config/perplexity-comet/Default/Local Extension Settings/chphlpgkkbolifaimnlloiipkdnihall"},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+string(tt.browser), func(t *testing.T) {
			got, err := ResolveStorePath(tt.goos, dirs, tt.browser, tt.profile)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveStorePathUnsupported(t *testing.T) {
	_, err := ResolveStorePath("plan9", BaseDirs{Config: "/x"}, Chrome, "Default")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)

	_, err = ResolveStorePath("linux", BaseDirs{Home: "/home/x"}, Chrome, "Default")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)

	_, err = ResolveStorePath("windows", BaseDirs{Home: `C:\Users\x`}, Chrome, "Default")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)

	_, err = ResolveStorePath("linux", BaseDirs{Config: "/x"}, Browser("netscape"), "Default")
	assert.Error(t, err)
}

func TestParseBrowser(t *testing.T) {
	b, err := ParseBrowser(" Edge ")
	require.NoError(t, err)
	assert.Equal(t, Edge, b)
	assert.Equal(t, "Comet (Perplexity)", Comet.DisplayName())
	assert.Equal(t, Brave.ExtensionID(), Chrome.ExtensionID())
	assert.NotEqual(t, Edge.ExtensionID(), Chrome.ExtensionID())

	_, err = ParseBrowser("firefox")
	assert.Error(t, err)
}

// installStore builds an extension store at the linux path for browser under config.
func installStore(t *testing.T, config string, b Browser, profile string, entries map[string]string) string {
	t.Helper()
	path, err := ResolveStorePath("linux", BaseDirs{Config: config}, b, profile)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	db, err := leveldb.OpenFile(path, nil)
	require.NoError(t, err)
	for k, v := range entries {
		require.NoError(t, db.Put([]byte(k), []byte(v), nil))
	}
	require.NoError(t, db.Close())
	return path
}

func TestRecoverResolvesAndDecodes(t *testing.T) {
	config := t.TempDir()
	path := installStore(t, config, Chrome, DefaultProfile, map[string]string{"root": exampleRecord})

	res, err := Recover(Options{Browser: Chrome, GOOS: "linux", Dirs: &BaseDirs{Config: config}})
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.False(t, res.Copied)
	assert.Equal(t, model.BrowserSource("chrome", "Default"), res.Session.Source)
	assert.Equal(t, model.FormatVersion, res.Session.Version)
	require.Len(t, res.Session.Groups, 1)
	assert.Equal(t, 1, res.Report.Tabs)
}

func TestRecoverStorePathOverride(t *testing.T) {
	dir := closedFileStore(t, map[string]string{"root": escaped(t, exampleRecord)})

	res, err := Recover(Options{Browser: Brave, Profile: "Profile 1", StorePath: dir, GOOS: "plan9", Dirs: &BaseDirs{}})
	require.NoError(t, err)
	assert.Equal(t, dir, res.Path)
	assert.Equal(t, "Profile 1", res.Session.Source.Profile)
	assert.Equal(t, 1, res.Session.TotalTabs())
}

func TestRecoverDryRunDoesNotOpen(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	res, err := Recover(Options{DryRun: true, StorePath: missing})
	require.NoError(t, err)
	assert.Empty(t, res.Session.Groups)
	assert.Equal(t, missing, res.Path)
	assert.Equal(t, model.SourceBrowser, res.Session.Source.Kind)
}

func TestRecoverMissingOrNonDirectory(t *testing.T) {
	_, err := Recover(Options{StorePath: filepath.Join(t.TempDir(), "nope")})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = Recover(Options{StorePath: file})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRecoverUnsupportedPlatform(t *testing.T) {
	_, err := Recover(Options{GOOS: "plan9", Dirs: &BaseDirs{}})
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestDetectStores(t *testing.T) {
	config := t.TempDir()
	chrome := installStore(t, config, Chrome, DefaultProfile, map[string]string{"k": "v"})
	edge := installStore(t, config, Edge, "Profile 1", map[string]string{"k": "v"})

	found := DetectStores("linux", BaseDirs{Config: config})
	assert.Equal(t, []DetectedStore{
		{Browser: Chrome, Profile: DefaultProfile, Path: chrome},
		{Browser: Edge, Profile: "Profile 1", Path: edge},
	}, found)

	assert.Empty(t, DetectStores("linux", BaseDirs{Config: t.TempDir()}))
}
