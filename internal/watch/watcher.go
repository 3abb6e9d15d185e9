// Package watch re-runs a sync callback whenever a registered job
// source file changes on disk. Used by the CLI's foreground watch mode;
// it is not a daemon — the process stays attached to the user's
// terminal and dies with it.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Config configures the watcher.
type Config struct {
	// Paths are the source files to watch.
	Paths []string

	// Debounce coalesces bursts of write events (editors often write a
	// file several times per save). Defaults to 500 ms.
	Debounce time.Duration

	// OnChange runs after the debounce window for each burst. Errors
	// are logged, not fatal: the watch continues.
	OnChange func(path string) error

	Logger *slog.Logger
}

// Watcher drives fsnotify over a fixed set of source files.
type Watcher struct {
	cfg     Config
	watcher *fsnotify.Watcher
}

// New creates a Watcher. Watching the parent directories (rather than
// the files) keeps events flowing across the delete+rename dance most
// editors perform on save.
func New(cfg Config) (*Watcher, error) {
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("watch: OnChange callback required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating watcher: %w", err)
	}

	dirs := map[string]bool{}
	for _, p := range cfg.Paths {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch: watching %s: %w", dir, err)
		}
	}

	return &Watcher{cfg: cfg, watcher: fsw}, nil
}

// Run blocks, dispatching debounced change events until the context is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	watched := map[string]bool{}
	for _, p := range w.cfg.Paths {
		watched[filepath.Clean(p)] = true
	}

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = filepath.Clean(ev.Name)
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.cfg.Debounce)
			}

		case <-timerC:
			timerC = nil
			timer = nil
			w.cfg.Logger.Info("watch: source changed", "path", pending)
			if err := w.cfg.OnChange(pending); err != nil {
				w.cfg.Logger.Error("watch: sync failed", "path", pending, "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.cfg.Logger.Warn("watch: watcher error", "error", err)
		}
	}
}
