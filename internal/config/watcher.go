package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 200 * time.Millisecond

// Watcher reloads the configuration file when it changes and hands valid
// results to the registered callbacks. Invalid edits are logged and ignored.
type Watcher struct {
	path    string
	log     *zap.Logger
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	done    chan struct{}

	mu        sync.RWMutex
	current   *Config
	callbacks []func(*Config)
}

// NewWatcher starts watching the directory holding initial.ConfigFile.
// Editors often replace files by rename, so the directory is watched and
// events are filtered by name.
func NewWatcher(initial *Config, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if initial.ConfigFile == "" {
		return nil, fmt.Errorf("no config file to watch")
	}
	path, err := filepath.Abs(initial.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("resolve config file: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:    path,
		log:     log,
		watcher: fw,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		current: initial,
	}
	go w.loop()
	log.Info("watching config file", zap.String("path", path))
	return w, nil
}

// OnChange registers a callback for every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Current returns the last valid configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) Close() error {
	close(w.stopCh)
	<-w.done
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer w.watcher.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debug("config file changed", zap.String("op", ev.Op.String()))
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		w.log.Error("config reload rejected", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = cfg
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	w.log.Info("config reloaded", zap.Int("callbacks", len(callbacks)))
}
