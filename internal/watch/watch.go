// Package watch reloads the config store when its file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 250 * time.Millisecond

type Options struct {
	Logger   *slog.Logger
	Debounce time.Duration
	// OnReload is called after every reload attempt with its result.
	OnReload func(err error)
}

// Watcher calls reload once a burst of changes to one file settles.
type Watcher struct {
	path     string
	reload   func() error
	logger   *slog.Logger
	debounce time.Duration
	onReload func(err error)
}

func New(path string, reload func() error, opts Options) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		reload:   reload,
		logger:   logger,
		debounce: debounce,
		onReload: opts.OnReload,
	}
}

// Run watches until ctx is done. The parent directory is watched so that
// atomic replacements of the file are seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("WATCH_INIT: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("WATCH_INIT: watch %s: %w", dir, err)
	}
	w.logger.Debug("watching monitor config store", "path", w.path, "debounce", w.debounce)

	var mu sync.Mutex
	var timer *time.Timer
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, w.fire)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("monitor config watch error", "error", err)
		}
	}
}

func (w *Watcher) fire() {
	err := w.reload()
	if err != nil {
		w.logger.Warn("Failed to reload monitor configuration", "path", w.path, "error", err)
	} else {
		w.logger.Info("reloaded monitor configuration", "path", w.path)
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
