// Package recovery reads tab groups out of a browser extension's local
// LevelDB store. It resolves the store's location per OS and browser, opens
// it without disturbing a running browser, and decodes the extension's root
// record into the canonical model.
package recovery

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/model"
)

// DefaultProfile is the profile directory used when none is given.
const DefaultProfile = "Default"

// Options selects what Recover reads.
type Options struct {
	Browser Browser
	Profile string
	// DryRun resolves the path and returns an empty session without opening the store.
	DryRun bool
	// StorePath overrides path resolution.
	StorePath string
	// GOOS and Dirs default to the running platform.
	GOOS   string
	Dirs   *BaseDirs
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Browser == "" {
		o.Browser = Chrome
	}
	if o.Profile == "" {
		o.Profile = DefaultProfile
	}
	if o.GOOS == "" {
		o.GOOS = runtime.GOOS
	}
	if o.Dirs == nil {
		dirs := DefaultBaseDirs()
		o.Dirs = &dirs
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Result is the outcome of a recovery run.
type Result struct {
	Session *model.Session
	Report  *DecodeReport
	Path    string
	Copied  bool
}

// Recover locates the browser's extension store and decodes every tab group
// in it.
func Recover(opts Options) (*Result, error) {
	opts = opts.withDefaults()
	source := model.BrowserSource(string(opts.Browser), opts.Profile)

	path := opts.StorePath
	if path == "" {
		var err error
		path, err = ResolveStorePath(opts.GOOS, *opts.Dirs, opts.Browser, opts.Profile)
		if err != nil {
			return nil, err
		}
	}

	log := opts.Logger.With(zap.String("browser", opts.Browser.DisplayName()), zap.String("path", path))

	if opts.DryRun {
		log.Info("dry run, store not opened")
		return &Result{Session: model.NewSession(source), Report: &DecodeReport{}, Path: path}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrStoreUnavailable, path)
	}

	return Extract(path, source, log)
}

// Extract opens the store at path and decodes it into a session tagged with source.
func Extract(path string, source model.Source, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	h, err := OpenSafe(path, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			log.Warn("close store", zap.Error(cerr))
		}
	}()

	session, report, err := Decoder{Log: log}.Decode(h.DB, source)
	if err != nil {
		return nil, err
	}

	log.Info("recovered tab groups",
		zap.Int("groups", report.Groups),
		zap.Int("tabs", report.Tabs),
		zap.Int("skipped_tabs", report.SkippedTabs),
		zap.Int("skipped_entries", report.SkippedEntries),
		zap.Int("dropped_groups", report.DroppedGroups),
		zap.Bool("copied", h.Copied()))

	return &Result{Session: session, Report: report, Path: path, Copied: h.Copied()}, nil
}

// ─── Detection ───────────────────────────────────────────────────────────────

// detectProfiles are the profile directories probed by DetectStores.
var detectProfiles = []string{DefaultProfile, "Profile 1"}

// DetectedStore is an extension store found on disk.
type DetectedStore struct {
	Browser Browser `json:"browser"`
	Profile string  `json:"profile"`
	Path    string  `json:"path"`
}

// DetectStores probes every supported browser's common profiles and returns
// the stores that exist.
func DetectStores(goos string, dirs BaseDirs) []DetectedStore {
	var found []DetectedStore
	for _, b := range AllBrowsers {
		for _, profile := range detectProfiles {
			path, err := ResolveStorePath(goos, dirs, b, profile)
			if err != nil {
				continue
			}
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				found = append(found, DetectedStore{Browser: b, Profile: profile, Path: path})
			}
		}
	}
	return found
}
