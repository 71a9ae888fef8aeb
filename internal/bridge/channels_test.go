package bridge

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/internal/approval"
	"github.com/hearthdesk/hearth/internal/cliexec"
	"github.com/hearthdesk/hearth/internal/project"
	"github.com/hearthdesk/hearth/internal/ratelimit"
	"github.com/hearthdesk/hearth/internal/watch"
	"github.com/hearthdesk/hearth/pkg/models"
	"github.com/hearthdesk/hearth/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T) (*Dispatcher, CoreServices) {
	t.Helper()

	hub := NewHub()
	watches, err := watch.NewManager(nil)
	require.NoError(t, err)
	t.Cleanup(watches.StopAll)

	svc := CoreServices{
		Projects:  project.NewRegistry(),
		Watches:   watches,
		Engine:    cliexec.NewEngine(func(ev models.CliOutputEvent) { hub.Publish(models.ChannelCliOutput, ev) }),
		Approvals: approval.NewRegistry(),
		Hub:       hub,
	}

	d := NewDispatcher(ratelimit.New(nil))
	RegisterCoreChannels(d, svc)
	return d, svc
}

func TestProjectOpenStartsWatch(t *testing.T) {
	d, svc := newTestCore(t)
	dir := t.TempDir()

	result, err := d.Dispatch(context.Background(), models.ChannelProjectOpen,
		map[string]interface{}{"path": dir})
	require.NoError(t, err)

	state, ok := result.(models.ProjectState)
	require.True(t, ok)
	assert.True(t, state.Open)
	assert.Equal(t, filepath.Base(state.Path), state.Name)
	assert.Equal(t, 1, svc.Watches.ActiveCount())

	// File changes under the project surface on file:change
	events, cancel := svc.Hub.Subscribe()
	defer cancel()

	testutil.WriteFile(t, state.Path, "x.txt", "1")

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Channel == models.ChannelFileChange {
				return
			}
		case <-deadline:
			t.Fatal("expected a file:change push")
		}
	}
}

func TestProjectStateWhenNothingOpen(t *testing.T) {
	d, _ := newTestCore(t)

	result, err := d.Dispatch(context.Background(), models.ChannelProjectState, nil)
	require.NoError(t, err)

	state := result.(models.ProjectState)
	assert.False(t, state.Open)
}

func TestFileReadChannel(t *testing.T) {
	d, _ := newTestCore(t)
	dir := testutil.SeedProject(t, map[string]string{"doc.md": "# hi"})

	result, err := d.Dispatch(context.Background(), models.ChannelFileRead, map[string]interface{}{
		"path":        "doc.md",
		"projectPath": dir,
	})
	require.NoError(t, err)

	res := result.(*models.ReadFileResult)
	assert.Equal(t, "# hi", res.Content)
	assert.Equal(t, "text/markdown", res.MimeType)
}

func TestCliExecuteAndCancelChannels(t *testing.T) {
	d, svc := newTestCore(t)
	dir := t.TempDir()

	events, cancel := svc.Hub.Subscribe()
	defer cancel()

	result, err := d.Dispatch(context.Background(), models.ChannelCliExecute, map[string]interface{}{
		"command":     "sleep 30",
		"projectPath": dir,
	})
	require.NoError(t, err)
	res := result.(*models.ExecuteResult)
	assert.Equal(t, models.StatusRunning, res.Status)

	cancelResult, err := d.Dispatch(context.Background(), models.ChannelCliCancel, map[string]interface{}{
		"executionId": res.ExecutionID,
	})
	require.NoError(t, err)
	assert.True(t, cancelResult.(models.CancelResult).Success)

	// The terminal push event reports the final status asynchronously
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Channel != models.ChannelCliOutput {
				continue
			}
			out := ev.Payload.(models.CliOutputEvent)
			if out.ExitCode != nil {
				exec, ok := svc.Engine.Get(res.ExecutionID)
				require.True(t, ok)
				assert.Equal(t, models.StatusCancelled, exec.Status)
				return
			}
		case <-deadline:
			t.Fatal("expected terminal cli:output event")
		}
	}
}

func TestCliCancelUnknownExecution(t *testing.T) {
	d, _ := newTestCore(t)

	_, err := d.Dispatch(context.Background(), models.ChannelCliCancel, map[string]interface{}{
		"executionId": "missing",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeExecutionNotFound))
}

func TestApprovalChannels(t *testing.T) {
	d, _ := newTestCore(t)

	result, err := d.Dispatch(context.Background(), models.ChannelApprovalSubmit, map[string]interface{}{
		"summary": "deploy step 3",
		"stepId":  "step-3",
	})
	require.NoError(t, err)
	rec := result.(models.ApprovalRecord)
	assert.Equal(t, approval.StatusPending, rec.Status)
	assert.NotEmpty(t, rec.ID)

	statusResult, err := d.Dispatch(context.Background(), models.ChannelApprovalStatus, map[string]interface{}{
		"id": rec.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, statusResult.(models.ApprovalRecord).ID)

	_, err = d.Dispatch(context.Background(), models.ChannelApprovalStatus, map[string]interface{}{
		"id": "missing",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}
