package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period a Watcher waits after the last
// file event before reloading.
const DefaultDebounceInterval = 200 * time.Millisecond

// ReloadFunc is called after a successful reload with the previous and the
// new configuration.
type ReloadFunc func(prev, next *Config)

// Watcher reloads the process configuration when its file changes on disk.
// It watches the parent directory rather than the file itself so that
// editors and config-map mounts that replace the file by rename are seen.
type Watcher struct {
	path     string
	interval time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	mu        sync.Mutex
	callbacks []ReloadFunc
	timer     *time.Timer
	reloads   int
}

// NewWatcher creates a watcher for the configuration file at path.
// A zero interval uses DefaultDebounceInterval.
func NewWatcher(path string, interval time.Duration) (*Watcher, error) {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     abs,
		interval: interval,
		watcher:  fw,
		logger:   slog.Default().With("component", "config.watcher"),
	}, nil
}

// OnReload registers a callback invoked after every successful reload.
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Reloads returns the number of successful reloads so far.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Watch blocks until ctx is cancelled, reloading the configuration whenever
// the file is written, created or renamed into place.
func (w *Watcher) Watch(ctx context.Context) error {
	defer w.watcher.Close()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("config watcher started",
		"path", w.path,
		"debounce_ms", w.interval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			w.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("config file event", "path", event.Name, "op", event.Op.String())
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == w.path
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.interval, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) reload() {
	prev, err := ReloadConfig(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous configuration", "error", err)
		return
	}
	next := GetConfig()

	if prev != nil && PoolsChanged(prev, next) {
		w.logger.Warn("provider pools changed on disk; restart required for pool changes to take effect",
			"primary", next.Routing.Primary,
			"fallback", next.Routing.Fallback,
		)
	}

	w.mu.Lock()
	w.reloads++
	callbacks := slices.Clone(w.callbacks)
	w.mu.Unlock()

	w.logger.Info("configuration reloaded", "path", w.path)

	for _, fn := range callbacks {
		fn(prev, next)
	}
}

// PoolsChanged reports whether the provider pools or provider definitions
// differ between two configurations. Pools are fixed for the lifetime of a
// process, so such changes only apply after a restart.
func PoolsChanged(a, b *Config) bool {
	if !slices.Equal(a.Routing.Primary, b.Routing.Primary) ||
		!slices.Equal(a.Routing.Fallback, b.Routing.Fallback) {
		return true
	}
	if len(a.Providers) != len(b.Providers) {
		return true
	}
	for name, pa := range a.Providers {
		pb, ok := b.Providers[name]
		if !ok || pa != pb {
			return true
		}
	}
	return false
}
