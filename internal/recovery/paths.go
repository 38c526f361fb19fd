package recovery

import (
	"errors"
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"
)

// ErrUnsupportedPlatform is returned when the operating system is unknown or
// the platform's application-data root cannot be located.
var ErrUnsupportedPlatform = errors.New("recovery: unsupported platform")

// ─── Browsers ────────────────────────────────────────────────────────────────

// Browser identifies a supported Chromium-family browser.
type Browser string

const (
	Chrome Browser = "chrome"
	Edge   Browser = "edge"
	Brave  Browser = "brave"
	Comet  Browser = "comet"
)

// AllBrowsers lists every supported browser in detection order.
var AllBrowsers = []Browser{Chrome, Edge, Brave, Comet}

// Extension ids of the tab-group extension. Edge ships its own listing.
const (
	chromeStoreExtensionID = "chphlpgkkbolifaimnlloiipkdnihall"
	edgeStoreExtensionID   = "hoimpamkkoehapgenciaoajfkfkpgfop"
)

type browserLayout struct {
	display string
	vendor  string // directory under the app-data root on windows and darwin
	product string // directory under vendor on windows and darwin
	linux   string // directory under the XDG config root
}

var layouts = map[Browser]browserLayout{
	Chrome: {display: "Chrome", vendor: "Google", product: "Chrome", linux: "google-chrome"},
	Edge:   {display: "Edge", vendor: "Microsoft", product: "Edge", linux: "microsoft-edge"},
	Brave:  {display: "Brave", vendor: "BraveSoftware", product: "Brave-Browser", linux: "BraveSoftware/Brave-Browser"},
	Comet:  {display: "Comet (Perplexity)", vendor: "Perplexity", product: "Comet", linux: "perplexity-comet"},
}

// ParseBrowser maps a case-insensitive name to a Browser.
func ParseBrowser(name string) (Browser, error) {
	b := Browser(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := layouts[b]; !ok {
		return "", fmt.Errorf("recovery: unknown browser %q (want chrome, edge, brave or comet)", name)
	}
	return b, nil
}

// ExtensionID returns the id of the tab-group extension for this browser's store.
func (b Browser) ExtensionID() string {
	if b == Edge {
		return edgeStoreExtensionID
	}
	return chromeStoreExtensionID
}

// DisplayName returns a human readable browser name.
func (b Browser) DisplayName() string {
	if l, ok := layouts[b]; ok {
		return l.display
	}
	return string(b)
}

// ─── Paths ───────────────────────────────────────────────────────────────────

// BaseDirs are the platform directory roots a store path is built from.
// Resolution never looks these up itself; callers inject them.
type BaseDirs struct {
	Home      string // user home (darwin)
	Config    string // XDG config root (linux and other unix)
	LocalData string // %LOCALAPPDATA% (windows)
}

// DefaultBaseDirs looks up the current user's directory roots. Missing
// entries are left empty and surface later as ErrUnsupportedPlatform.
func DefaultBaseDirs() BaseDirs {
	var dirs BaseDirs
	if home, err := os.UserHomeDir(); err == nil {
		dirs.Home = home
	}
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		if cfg, err := os.UserConfigDir(); err == nil {
			dirs.Config = cfg
		}
	}
	dirs.LocalData = os.Getenv("LOCALAPPDATA")
	return dirs
}

const extensionSettingsDir = "Local Extension Settings"

// ResolveStorePath returns the extension's LevelDB directory for a browser
// profile on the given OS. It does not check that the path exists.
func ResolveStorePath(goos string, dirs BaseDirs, b Browser, profile string) (string, error) {
	l, ok := layouts[b]
	if !ok {
		return "", fmt.Errorf("recovery: unknown browser %q", b)
	}
	ext := b.ExtensionID()

	switch goos {
	case "windows":
		if dirs.LocalData == "" {
			return "", fmt.Errorf("%w: local app data directory not found", ErrUnsupportedPlatform)
		}
		return strings.Join([]string{
			strings.TrimRight(dirs.LocalData, `\/`), l.vendor, l.product, "User Data", profile, extensionSettingsDir, ext,
		}, `\`), nil
	case "darwin":
		if dirs.Home == "" {
			return "", fmt.Errorf("%w: home directory not found", ErrUnsupportedPlatform)
		}
		return path.Join(dirs.Home, "Library", "Application Support", l.vendor, l.product, profile, extensionSettingsDir, ext), nil
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		if dirs.Config == "" {
			return "", fmt.Errorf("%w: config directory not found", ErrUnsupportedPlatform)
		}
		return path.Join(dirs.Config, l.linux, profile, extensionSettingsDir, ext), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, goos)
	}
}
