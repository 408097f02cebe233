package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler receives the freshly loaded config after the file changed.
type ChangeHandler func(cfg *Config)

// Watcher reloads the config file when it changes on disk. It watches the
// parent directory so editors that save via rename are picked up too.
// Bursts of events are collapsed into one reload after the debounce delay.
type Watcher struct {
	path     string
	debounce time.Duration
	secrets  SecretStore

	mu       sync.Mutex
	handlers []ChangeHandler
	lastHash string
}

// NewWatcher creates a watcher for the config at path. secrets may be nil.
func NewWatcher(path string, secrets SecretStore) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: 300 * time.Millisecond,
		secrets:  secrets,
	}
}

// OnChange registers a handler. Handlers run on the watcher goroutine.
func (w *Watcher) OnChange(h ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Run blocks until ctx is done. The baseline hash is taken from initial so
// a reload that changes nothing does not fire handlers.
func (w *Watcher) Run(ctx context.Context, initial *Config) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	if initial != nil {
		w.lastHash = initial.Hash()
	}
	slog.Debug("config watcher started", "path", w.path)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Error("config reload failed", "path", w.path, "error", err)
		return
	}
	if err := cfg.ApplySecrets(w.secrets); err != nil {
		slog.Warn("config reload: keyring unavailable", "error", err)
	}

	w.mu.Lock()
	hash := cfg.Hash()
	if hash == w.lastHash {
		w.mu.Unlock()
		return
	}
	w.lastHash = hash
	handlers := make([]ChangeHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	for _, h := range handlers {
		h(cfg)
	}
	slog.Info("config reloaded", "path", w.path, "hash", hash)
}
