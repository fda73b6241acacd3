package vocab

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Resyncer rebuilds indexes on demand.
type Resyncer interface {
	Resync(ctx context.Context) error
}

// Watcher triggers a resync when source files change and on a fixed interval.
// Bursts of file events within the debounce window cause one resync.
type Watcher struct {
	target   Resyncer
	sources  []Source
	filter   *FileFilter
	interval time.Duration
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher. A zero interval disables periodic resyncs and
// a zero debounce disables file watching.
func NewWatcher(target Resyncer, sources []Source, filter *FileFilter, interval, debounce time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		target:   target,
		sources:  sources,
		filter:   filter,
		interval: interval,
		debounce: debounce,
		logger:   logger,
	}
}

// NewWatcher creates a watcher over the service sources using its settings.
// File events are only watched when enabled in the settings.
func (s *Service) NewWatcher() *Watcher {
	debounce := time.Duration(0)
	if s.settings.Watch {
		debounce = s.settings.WatchDebounce
	}
	return NewWatcher(s, s.sources, s.filter, s.settings.SyncInterval, debounce, s.logger)
}

// Run watches until ctx is done. Resyncs run on the calling goroutine, one at
// a time.
func (w *Watcher) Run(ctx context.Context) error {
	var fsw *fsnotify.Watcher
	if w.debounce > 0 {
		var err error
		fsw, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		defer func() { _ = fsw.Close() }()

		for _, src := range w.sources {
			if err := w.watchSource(fsw, src); err != nil {
				return err
			}
		}
		w.logger.Info("Watching vocabulary sources", "sources", len(w.sources), "debounce", w.debounce)
	}

	return w.loop(ctx, fsw)
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) error {
	var events <-chan fsnotify.Event
	var errs <-chan error
	if fsw != nil {
		events, errs = fsw.Events, fsw.Errors
	}

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var pending *time.Timer
	var fire <-chan time.Time
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !w.relevant(fsw, ev) {
				continue
			}
			w.logger.Debug("Source changed", "path", ev.Name, "op", ev.Op.String())
			if pending == nil {
				pending = time.NewTimer(w.debounce)
			} else {
				pending.Reset(w.debounce)
			}
			fire = pending.C

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "error", err)

		case <-fire:
			fire = nil
			w.resync(ctx, "change")

		case <-tick:
			w.resync(ctx, "interval")
		}
	}
}

func (w *Watcher) resync(ctx context.Context, reason string) {
	w.logger.Info("Resyncing vocabulary sources", "reason", reason)
	if err := w.target.Resync(ctx); err != nil {
		w.logger.Error("Resync failed", "error", err)
	}
}

// watchSource adds a source directory tree, or the directory of a file source.
func (w *Watcher) watchSource(fsw *fsnotify.Watcher, src Source) error {
	if !src.Dir {
		if err := fsw.Add(filepath.Dir(src.Path)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", src.Path, err)
		}
		return nil
	}
	return w.watchTree(fsw, src.Path, src.Path)
}

func (w *Watcher) watchTree(fsw *fsnotify.Watcher, root, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, _ := filepath.Rel(root, path); rel != "." && w.filter.SkipDir(rel) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// relevant reports whether an event touches a file that would be loaded.
// Newly created directories inside a source are watched.
func (w *Watcher) relevant(fsw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}

	for _, src := range w.sources {
		if !src.Dir {
			if ev.Name == src.Path {
				return true
			}
			continue
		}

		rel, err := filepath.Rel(src.Path, ev.Name)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}

		info, statErr := os.Stat(ev.Name)
		if statErr == nil && info.IsDir() {
			if ev.Op.Has(fsnotify.Create) && fsw != nil && !w.filter.SkipDir(rel) {
				if err := w.watchTree(fsw, src.Path, ev.Name); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", ev.Name, "error", err)
				}
				return true
			}
			return false
		}

		var size int64
		if statErr == nil {
			size = info.Size()
		}
		return w.filter.Include(rel, size)
	}
	return false
}
