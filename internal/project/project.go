// Package project tracks the host's currently open project.
package project

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/logging"
	"github.com/hearthdesk/hearth/pkg/models"
	"github.com/hearthdesk/hearth/util/pathutil"
	"github.com/sirupsen/logrus"
)

// Registry holds the open-project state served on project:open and
// project:state.
type Registry struct {
	mu     sync.Mutex
	state  models.ProjectState
	logger *logrus.Entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{logger: logging.NewLogger("project")}
}

// Open validates and records path as the open project, returning its state
// snapshot. Opening a new project replaces the previous one.
func (r *Registry) Open(path string) (models.ProjectState, error) {
	normalized, err := pathutil.NormalizeForLookup(path)
	if err != nil {
		return models.ProjectState{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to normalize project path").
			WithDetail("path", path)
	}

	info, err := os.Stat(normalized)
	if err != nil {
		return models.ProjectState{}, errors.FromOSError(err, path)
	}
	if !info.IsDir() {
		return models.ProjectState{}, errors.InvalidRequest(models.ChannelProjectOpen, "project path is not a directory").
			WithDetail("path", path)
	}

	now := time.Now()

	r.mu.Lock()
	r.state = models.ProjectState{
		Path:     normalized,
		Name:     filepath.Base(normalized),
		OpenedAt: &now,
		Open:     true,
	}
	state := r.state
	r.mu.Unlock()

	r.logger.WithField("path", normalized).Info("Opened project")
	return state, nil
}

// State returns the current project snapshot. With no open project the
// snapshot is empty with Open=false.
func (r *Registry) State() models.ProjectState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close clears the open project. No-op when nothing is open.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = models.ProjectState{}
}
