package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// debounceDuration coalesces the event bursts editors emit on save.
const debounceDuration = 100 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk.
// Tuning keys (autosave delay, undo TTL, context window, rate limit)
// are applied through the registered handlers; changes to anything
// else only log a warning because they need a restart.
type Watcher struct {
	path     string
	flags    *pflag.FlagSet
	watcher  *fsnotify.Watcher
	current  *Config
	mu       sync.RWMutex
	onChange []func(old, next *Config)
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for the given config file. The flags
// used for the initial load are replayed on every reload so flag
// overrides keep their precedence.
func NewWatcher(path string, current *Config, flags *pflag.FlagSet, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	// Also watch the directory for atomic saves (rename operations)
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("failed to watch config directory", zap.Error(err))
	}

	return &Watcher{
		path:     path,
		flags:    flags,
		watcher:  watcher,
		current:  current,
		onChange: make([]func(old, next *Config), 0),
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching for configuration changes
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching for configuration changes
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.logger.Info("configuration watcher stopped")
	})
}

// OnChange registers a callback invoked after every successful reload
func (w *Watcher) OnChange(handler func(old, next *Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// Current returns the most recently loaded configuration
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					w.handleConfigChange()
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleConfigChange() {
	w.logger.Info("configuration file changed, reloading", zap.String("path", w.path))

	next, err := Load(w.path, w.flags)
	if err != nil {
		w.logger.Error("invalid configuration, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = next
	handlers := make([]func(oldCfg, nextCfg *Config), len(w.onChange))
	copy(handlers, w.onChange)
	w.mu.Unlock()

	if restartOnly := restartOnlyChanges(old, next); len(restartOnly) > 0 {
		w.logger.Warn("configuration keys changed that require a restart",
			zap.Strings("keys", restartOnly),
		)
	}

	for _, handler := range handlers {
		go handler(old, next)
	}

	w.logger.Info("configuration reloaded",
		zap.Strings("applied", LiveChanges(old, next)),
	)
}

// LiveChanges lists the tuning keys whose values differ between two
// configurations. These keys take effect without a restart.
func LiveChanges(old, next *Config) []string {
	changes := []string{}

	if old.Editor.AutosaveDelay != next.Editor.AutosaveDelay {
		changes = append(changes, fmt.Sprintf("editor.autosave_delay: %s -> %s",
			old.Editor.AutosaveDelay, next.Editor.AutosaveDelay))
	}
	if old.Editor.UndoTTL != next.Editor.UndoTTL {
		changes = append(changes, fmt.Sprintf("editor.undo_ttl: %s -> %s",
			old.Editor.UndoTTL, next.Editor.UndoTTL))
	}
	if old.Session.ContextWindow != next.Session.ContextWindow {
		changes = append(changes, fmt.Sprintf("session.context_window: %d -> %d",
			old.Session.ContextWindow, next.Session.ContextWindow))
	}
	if old.RateLimit != next.RateLimit {
		changes = append(changes, fmt.Sprintf("ratelimit: enabled=%v rpm=%d -> enabled=%v rpm=%d",
			old.RateLimit.Enabled, old.RateLimit.RequestsPerMinute,
			next.RateLimit.Enabled, next.RateLimit.RequestsPerMinute))
	}

	return changes
}

// restartOnlyChanges lists changed keys that only apply after a restart
func restartOnlyChanges(old, next *Config) []string {
	changes := []string{}

	if old.Environment != next.Environment {
		changes = append(changes, "environment")
	}
	if old.Server != next.Server {
		changes = append(changes, "server")
	}
	if old.Backend != next.Backend {
		changes = append(changes, "backend")
	}
	if old.Editor.MaxNodes != next.Editor.MaxNodes {
		changes = append(changes, "editor.max_nodes")
	}
	if old.Editor.MaxEdges != next.Editor.MaxEdges {
		changes = append(changes, "editor.max_edges")
	}
	if old.Session.DefaultGraphName != next.Session.DefaultGraphName {
		changes = append(changes, "session.default_graph_name")
	}
	if old.Session.HistoryPageSize != next.Session.HistoryPageSize {
		changes = append(changes, "session.history_page_size")
	}
	if old.Draft != next.Draft {
		changes = append(changes, "draft")
	}
	if !reflect.DeepEqual(old.CORS.AllowedOrigins, next.CORS.AllowedOrigins) {
		changes = append(changes, "cors.allowed_origins")
	}
	if old.Log.Level != next.Log.Level {
		changes = append(changes, "log.level")
	}

	return changes
}
