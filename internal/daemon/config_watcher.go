// Package daemon holds host-process plumbing that does not belong to a
// single bridge channel.
package daemon

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/hearthdesk/hearth/config"
	"github.com/hearthdesk/hearth/logging"
)

// Watcher watches the config directory and reloads hearth.yml on change.
// Editors save through temp-file renames, so it watches the directory
// rather than the file itself and debounces rapid event bursts.
type Watcher struct {
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	lastChange time.Time
	mu         sync.Mutex
	logger     *logrus.Entry
	onReload   func(cfg *config.Config)
	done       chan struct{}
	closeOnce  sync.Once
}

// NewWatcher starts watching the default config location. onReload is called
// with the freshly parsed config after each change; a change that fails to
// parse is logged and skipped, keeping the last good config in effect.
func NewWatcher(debounce time.Duration, onReload func(cfg *config.Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Dir(config.DefaultPath())
	if err := fsw.Add(configDir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		debounce: debounce,
		logger:   logging.NewLogger("config-watcher"),
		onReload: onReload,
		done:     make(chan struct{}),
	}

	go w.run()
	w.logger.WithField("dir", configDir).Debug("Watching config directory")
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.handleChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Config watch error")
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Base(event.Name) == filepath.Base(config.DefaultPath())
}

func (w *Watcher) handleChange() {
	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.lastChange) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.lastChange = now
	w.mu.Unlock()

	cfg, err := config.LoadDefault()
	if err != nil {
		w.logger.WithError(err).Warn("Ignoring invalid config change")
		return
	}

	w.logger.Info("Config reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
