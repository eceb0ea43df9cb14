// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/piairqual/piairqual/internal/log"
)

// Holder keeps the current configuration and supports hot reload from the
// config file. Only the reloadable subset (poll interval, log level) should
// be applied by subscribers; listen addresses and hardware wiring require a
// restart.
type Holder struct {
	mu     sync.RWMutex
	cur    Config
	loader *Loader
	path   string
	subs   []func(Config)
}

// NewHolder wraps an already-loaded configuration.
func NewHolder(cfg Config, loader *Loader, path string) *Holder {
	return &Holder{cur: cfg, loader: loader, path: path}
}

// Current returns a copy of the current configuration.
func (h *Holder) Current() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cur
}

// Subscribe registers fn to be called with the new configuration after every
// successful reload.
func (h *Holder) Subscribe(fn func(Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, fn)
}

// Reload re-resolves the configuration. On validation failure the previous
// configuration stays active and the error is returned.
func (h *Holder) Reload(ctx context.Context) error {
	logger := log.WithComponentFromContext(ctx, "config")

	cfg, err := h.loader.Load()
	if err != nil {
		logger.Error().Err(err).Str("event", "config.reload_failed").Msg("keeping previous configuration")
		return fmt.Errorf("reload: %w", err)
	}

	h.mu.Lock()
	h.cur = cfg
	subs := make([]func(Config), len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, fn := range subs {
		fn(cfg)
	}

	logger.Info().Str("event", "config.reloaded").Str("path", h.path).Msg("configuration reloaded")
	return nil
}

// Watch follows the config file with fsnotify and reloads on change, with a
// short debounce to coalesce editor write bursts. It blocks until ctx is
// done. A missing or unset file disables watching.
func (h *Holder) Watch(ctx context.Context) error {
	if h.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors and renameio-style writers replace the
	// file, which drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(h.path), err)
	}

	logger := log.WithComponent("config")
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	reload := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reload:
			_ = h.Reload(ctx)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(h.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Str("event", "config.watch_error").Msg("config watcher error")
		}
	}
}
