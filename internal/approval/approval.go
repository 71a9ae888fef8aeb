// Package approval tracks approval submissions from the UI. Submissions
// start pending and are resolved by the host; the registry is in-memory and
// cleared on restart.
package approval

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/pkg/models"
)

// Approval statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Registry is the in-memory approval store.
type Registry struct {
	mu      sync.Mutex
	records map[string]*models.ApprovalRecord
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*models.ApprovalRecord)}
}

// Submit records a new approval request and returns it in pending state.
func (r *Registry) Submit(req models.ApprovalRequest) models.ApprovalRecord {
	rec := &models.ApprovalRecord{
		ID:          uuid.NewString(),
		StepID:      req.StepID,
		Summary:     req.Summary,
		Payload:     req.Payload,
		Status:      StatusPending,
		SubmittedAt: time.Now(),
	}

	r.mu.Lock()
	r.records[rec.ID] = rec
	r.mu.Unlock()

	return *rec
}

// Status returns the record for id.
func (r *Registry) Status(id string) (models.ApprovalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return models.ApprovalRecord{}, errors.New(errors.ErrCodeNotFound, "approval not found").
			WithDetail("id", id)
	}
	return *rec, nil
}

// Resolve marks a pending approval approved or rejected.
func (r *Registry) Resolve(id string, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "approval not found").WithDetail("id", id)
	}
	if rec.Status != StatusPending {
		return nil
	}
	if approved {
		rec.Status = StatusApproved
	} else {
		rec.Status = StatusRejected
	}
	return nil
}
