// Package watch owns filesystem watches for project subtrees. The manager
// keeps at most one live watcher per normalized path: starting a watch on a
// path that already has one closes the old handle before creating the new
// one, so OS watch handles never leak and later callers supersede earlier
// ones.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/logging"
	"github.com/hearthdesk/hearth/pkg/models"
	"github.com/hearthdesk/hearth/util/pathutil"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
)

// DefaultExcludes are directory names never watched. Build output and
// version-control metadata churn constantly and would flood the event channel.
var DefaultExcludes = []string{
	"**/.git",
	"**/.hg",
	"**/.svn",
	"**/node_modules",
	"**/dist",
	"**/build",
	"**/out",
	"**/target",
	"**/.next",
	"**/coverage",
}

// Sink receives translated file change events for one watched path.
type Sink func(models.FileChangeEvent)

// watcher is one live filesystem watch over a path's subtree.
type watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	sink    Sink
	matcher *patternmatcher.PatternMatcher
	done    chan struct{}
	logger  *logrus.Entry
}

// Manager owns every active watcher, keyed by normalized absolute path.
type Manager struct {
	mu       sync.Mutex
	watchers map[string]*watcher
	matcher  *patternmatcher.PatternMatcher
	logger   *logrus.Entry
}

// NewManager creates a Manager. Extra exclude patterns are merged with the
// built-in defaults.
func NewManager(extraExcludes []string) (*Manager, error) {
	patterns := make([]string, 0, len(DefaultExcludes)+len(extraExcludes))
	patterns = append(patterns, DefaultExcludes...)
	patterns = append(patterns, extraExcludes...)

	matcher, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "invalid watch exclude patterns")
	}

	return &Manager{
		watchers: make(map[string]*watcher),
		matcher:  matcher,
		logger:   logging.NewLogger("watch"),
	}, nil
}

// Start begins watching path's subtree and forwards change events to sink.
// If a watcher already exists for the normalized path it is closed first, so
// exactly one handle exists per path and the newest caller's sink wins.
func (m *Manager) Start(path string, sink Sink) error {
	key, err := pathutil.NormalizeForLookup(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to normalize watch path").
			WithDetail("path", path)
	}

	if _, err := os.Stat(key); err != nil {
		return errors.FromOSError(err, path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.watchers[key]; ok {
		m.logger.WithField("path", key).Debug("Replacing existing watcher")
		prev.close()
		delete(m.watchers, key)
	}

	w, err := newWatcher(key, sink, m.matcher, m.logger)
	if err != nil {
		return err
	}
	m.watchers[key] = w

	m.logger.WithField("path", key).Info("Started file watch")
	return nil
}

// Stop closes and removes the watcher for path. No-op if none exists.
func (m *Manager) Stop(path string) {
	key, err := pathutil.NormalizeForLookup(path)
	if err != nil {
		key = path
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.watchers[key]; ok {
		w.close()
		delete(m.watchers, key)
		m.logger.WithField("path", key).Info("Stopped file watch")
	}
}

// StopAll closes and clears every watcher. Used at process teardown and as a
// test-reset primitive.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, w := range m.watchers {
		w.close()
		delete(m.watchers, key)
	}
	m.logger.Debug("Stopped all file watches")
}

// ActiveCount returns the number of live watchers. Purely observational.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

// newWatcher creates the native watch, registers the path's subtree, and
// starts the translation loop.
func newWatcher(root string, sink Sink, matcher *patternmatcher.PatternMatcher, logger *logrus.Entry) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WatcherFault(root, err)
	}

	w := &watcher{
		path:    root,
		fsw:     fsw,
		sink:    sink,
		matcher: matcher,
		done:    make(chan struct{}),
		logger:  logger.WithField("path", root),
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

// addTree registers root and every non-excluded subdirectory with the
// native watcher.
func (w *watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A vanishing or unreadable subdirectory must not abort
			// the rest of the tree.
			w.logger.WithError(err).WithField("dir", path).Debug("Skipping unreadable directory")
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excluded(path) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if path == root {
				return errors.WatcherFault(root, err)
			}
			w.logger.WithError(err).WithField("dir", path).Warn("Failed to watch subdirectory")
		}
		return nil
	})
}

// excluded reports whether a path under the root matches an exclude pattern.
func (w *watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.path, path)
	if err != nil {
		return false
	}
	matched, err := w.matcher.MatchesOrParentMatches(rel)
	if err != nil {
		return false
	}
	return matched
}

// run translates native events into FileChangeEvents until the watcher is
// closed. A failure here is logged and stops only this path's watch; the
// manager keeps serving every other path.
func (w *watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Watcher fault")
		case <-w.done:
			return
		}
	}
}

// handle translates one native event and forwards it to the sink.
func (w *watcher) handle(ev fsnotify.Event) {
	if w.excluded(ev.Name) {
		return
	}

	var changeType models.ChangeType
	switch {
	case ev.Op&fsnotify.Create != 0:
		changeType = models.ChangeAdd
		// New directories join the watched subtree.
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				w.logger.WithError(err).WithField("dir", ev.Name).Warn("Failed to watch new directory")
			}
		}
	case ev.Op&fsnotify.Write != 0:
		changeType = models.ChangeModify
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		changeType = models.ChangeUnlink
	default:
		return
	}

	w.sink(models.FileChangeEvent{
		Path:       ev.Name,
		ChangeType: changeType,
		Timestamp:  time.Now(),
	})
}

// close releases the native handle and stops the translation loop.
func (w *watcher) close() {
	close(w.done)
	if err := w.fsw.Close(); err != nil {
		w.logger.WithError(err).Debug("Error closing watcher")
	}
}
