package uistore

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hearthdesk/hearth/logging"
	"github.com/hearthdesk/hearth/pkg/models"
)

// MaxChangeEvents bounds the change history kept on the UI side. File change
// events are transient; the history exists only to drive recent-activity
// views.
const MaxChangeEvents = 1000

// FileWatchStore mirrors the file:change push stream.
type FileWatchStore struct {
	bridge Bridge
	logger *logrus.Entry

	mu          sync.Mutex
	events      []models.FileChangeEvent
	unsubscribe func()
}

// NewFileWatchStore creates an empty store backed by the given bridge.
func NewFileWatchStore(bridge Bridge) *FileWatchStore {
	return &FileWatchStore{
		bridge: bridge,
		logger: logging.NewLogger("watch-store"),
	}
}

// OpenProject asks the host to open the project at path, which also starts
// its file watch. Returns the host's project state snapshot.
func (s *FileWatchStore) OpenProject(ctx context.Context, path string) (models.ProjectState, error) {
	resp, err := s.bridge.Request(ctx, models.ChannelProjectOpen, map[string]interface{}{
		"path": path,
	})
	if err != nil {
		return models.ProjectState{}, err
	}

	var state models.ProjectState
	if err := decodeEvent(resp, &state); err != nil {
		return models.ProjectState{}, err
	}
	return state, nil
}

// Subscribe attaches to the file:change stream. No-op when already attached.
func (s *FileWatchStore) Subscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		return
	}
	s.unsubscribe = s.bridge.Subscribe(models.ChannelFileChange, s.handleChange)
}

// Unsubscribe detaches from the file:change stream. Idempotent.
func (s *FileWatchStore) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *FileWatchStore) handleChange(payload map[string]interface{}) {
	var ev models.FileChangeEvent
	if err := decodeEvent(payload, &ev); err != nil {
		s.logger.WithError(err).Warn("Malformed file:change event")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
	if surplus := len(s.events) - MaxChangeEvents; surplus > 0 {
		s.events = append(s.events[:0:0], s.events[surplus:]...)
	}
}

// Events returns a snapshot of the change history, oldest first.
func (s *FileWatchStore) Events() []models.FileChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FileChangeEvent(nil), s.events...)
}

// EventsUnder returns the events whose path sits under root.
func (s *FileWatchStore) EventsUnder(root string) []models.FileChangeEvent {
	prefix := strings.TrimSuffix(root, "/") + "/"

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.FileChangeEvent
	for _, ev := range s.events {
		if ev.Path == root || strings.HasPrefix(ev.Path, prefix) {
			out = append(out, ev)
		}
	}
	return out
}

// EventsOfType returns the events with the given change type.
func (s *FileWatchStore) EventsOfType(changeType models.ChangeType) []models.FileChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.FileChangeEvent
	for _, ev := range s.events {
		if ev.ChangeType == changeType {
			out = append(out, ev)
		}
	}
	return out
}

// Clear drops the change history without touching the subscription.
func (s *FileWatchStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// Reset clears the history and detaches from the stream.
func (s *FileWatchStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}
