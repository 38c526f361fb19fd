// Package watch re-runs a callback when a browser's extension store changes
// on disk. Bursts of writes are coalesced into one call.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the directory must stay quiet before the
// callback runs.
const DefaultDebounce = 2 * time.Second

// bookkeeping files LevelDB touches even when opened read-only. Changes to
// them carry no data and would retrigger on our own reads.
var ignoredFiles = map[string]bool{
	"LOCK":    true,
	"LOG":     true,
	"LOG.old": true,
}

// Watcher observes one directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	log      *zap.Logger
	fw       *fsnotify.Watcher
}

// New starts observing dir. Events are buffered until Run is called.
func New(dir string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch: add %s: %w", dir, err)
	}
	return &Watcher{dir: dir, debounce: debounce, log: log, fw: fw}, nil
}

// Close stops observing. Run returns once it notices.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

// Run calls onChange after every quiet period that follows a relevant
// change, until ctx is cancelled or the watcher is closed. A failing
// onChange is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	defer func() { _ = w.fw.Close() }()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.log.Debug("store changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			pending = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.String("dir", w.dir), zap.Error(err))

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := onChange(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.log.Warn("change handler failed", zap.String("dir", w.dir), zap.Error(err))
			}
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	return !ignoredFiles[filepath.Base(ev.Name)]
}
