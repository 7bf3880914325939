package cliconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/likelabs/likeship/pkg/log"
)

// debounceDelay coalesces the burst of fsnotify events an editor save emits.
const debounceDelay = 100 * time.Millisecond

// Watcher monitors the config file via fsnotify and reloads it on change.
// Reloaded values are delivered to the OnReload callback; flag precedence
// still applies, so explicitly-set flags survive a reload.
type Watcher struct {
	path    string
	base    Config
	changed map[string]bool
	logger  log.Logger

	// OnReload receives the merged config after each successful reload.
	OnReload func(Config)

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a watcher for the config file at path. base is the
// config as resolved at startup; changed marks flags set on the command line.
func NewWatcher(path string, base Config, changed map[string]bool, logger log.Logger) *Watcher {
	return &Watcher{
		path:    path,
		base:    base,
		changed: changed,
		logger:  logger,
	}
}

// Run watches the config file's directory until the context is canceled.
// Watching the directory rather than the file survives the rename dance
// most editors do on save.
func (w *Watcher) Run(ctx context.Context) {
	if w.path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("config watcher unavailable", log.Err(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Warn("cannot watch config directory",
			log.String("dir", filepath.Dir(w.path)),
			log.Err(err),
		)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", log.Err(err))
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, w.reload)
}

func (w *Watcher) reload() {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", log.String("path", w.path), log.Err(err))
		return
	}

	cfg := w.base
	if err := ApplyFileConfig(&cfg, fc, w.changed); err != nil {
		w.logger.Warn("config reload rejected", log.String("path", w.path), log.Err(err))
		return
	}
	// Same precedence as startup: file, then env, with explicit flags on top.
	// Without the env pass a file edit would clobber LIKESHIP_* overrides.
	if err := ApplyEnvConfig(&cfg, w.changed); err != nil {
		w.logger.Warn("config reload rejected", log.String("path", w.path), log.Err(err))
		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warn("config reload invalid", log.String("path", w.path), log.Err(err))
		return
	}

	w.logger.Info("config reloaded", log.String("path", w.path))
	if w.OnReload != nil {
		w.OnReload(cfg)
	}
}
