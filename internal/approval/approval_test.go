package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/pkg/models"
)

func TestSubmitAndStatus(t *testing.T) {
	r := NewRegistry()

	rec := r.Submit(models.ApprovalRequest{StepID: "step-1", Summary: "apply migration"})
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, StatusPending, rec.Status)
	assert.False(t, rec.SubmittedAt.IsZero())

	got, err := r.Status(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestStatusUnknownID(t *testing.T) {
	r := NewRegistry()

	_, err := r.Status("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestResolve(t *testing.T) {
	r := NewRegistry()
	rec := r.Submit(models.ApprovalRequest{Summary: "delete branch"})

	require.NoError(t, r.Resolve(rec.ID, true))
	got, err := r.Status(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)

	// Resolving a settled approval does not flip it.
	require.NoError(t, r.Resolve(rec.ID, false))
	got, err = r.Status(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestResolveRejected(t *testing.T) {
	r := NewRegistry()
	rec := r.Submit(models.ApprovalRequest{Summary: "force push"})

	require.NoError(t, r.Resolve(rec.ID, false))
	got, err := r.Status(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)

	assert.Error(t, r.Resolve("nope", true))
}
