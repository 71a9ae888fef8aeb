package cliexec

import (
	"sync"
	"testing"
	"time"

	"github.com/hearthdesk/hearth/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector gathers emitted events for assertions.
type collector struct {
	mu     sync.Mutex
	events []models.CliOutputEvent
	done   chan models.CliOutputEvent
}

func newCollector() *collector {
	return &collector{done: make(chan models.CliOutputEvent, 8)}
}

func (c *collector) emit(ev models.CliOutputEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	if ev.ExitCode != nil {
		c.done <- ev
	}
}

func (c *collector) all() []models.CliOutputEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.CliOutputEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *collector) waitTerminal(t *testing.T) models.CliOutputEvent {
	t.Helper()
	select {
	case ev := <-c.done:
		return ev
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for terminal event")
		return models.CliOutputEvent{}
	}
}

func TestExecuteSuccess(t *testing.T) {
	c := newCollector()
	e := NewEngine(c.emit)

	res, err := e.Execute(models.ExecuteRequest{
		Command:     "echo one; echo two",
		ProjectPath: t.TempDir(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ExecutionID)
	assert.Equal(t, models.StatusRunning, res.Status)
	assert.False(t, res.StartedAt.IsZero())

	terminal := c.waitTerminal(t)
	require.NotNil(t, terminal.ExitCode)
	assert.Equal(t, 0, *terminal.ExitCode)
	assert.Equal(t, models.OutputSystem, terminal.Type)

	exec, ok := e.Get(res.ExecutionID)
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, exec.Status)
	require.NotNil(t, exec.ExitCode)
	assert.Equal(t, 0, *exec.ExitCode)
	assert.NotNil(t, exec.EndedAt)

	// stdout events preserve order within the execution
	var stdout []string
	for _, ev := range c.all() {
		if ev.Type == models.OutputStdout {
			stdout = append(stdout, ev.Content)
		}
	}
	assert.Equal(t, []string{"one", "two"}, stdout)
}

func TestExecuteFailure(t *testing.T) {
	c := newCollector()
	e := NewEngine(c.emit)

	res, err := e.Execute(models.ExecuteRequest{
		Command:     "echo oops >&2; exit 3",
		ProjectPath: t.TempDir(),
	})
	require.NoError(t, err)

	terminal := c.waitTerminal(t)
	require.NotNil(t, terminal.ExitCode)
	assert.Equal(t, 3, *terminal.ExitCode)

	exec, _ := e.Get(res.ExecutionID)
	assert.Equal(t, models.StatusFailed, exec.Status)

	var sawStderr bool
	for _, ev := range c.all() {
		if ev.Type == models.OutputStderr && ev.Content == "oops" {
			sawStderr = true
		}
	}
	assert.True(t, sawStderr, "stderr output should be emitted")
}

func TestExecuteSpawnFailureLeavesNoRecord(t *testing.T) {
	c := newCollector()
	e := NewEngine(c.emit)

	_, err := e.Execute(models.ExecuteRequest{
		Command:     "echo hi",
		ProjectPath: "/path/that/does/not/exist",
	})
	require.Error(t, err)
	assert.Empty(t, e.List(), "a failed spawn must not leave an execution record")
}

func TestCancel(t *testing.T) {
	c := newCollector()
	e := NewEngine(c.emit, WithKillGrace(500*time.Millisecond))

	res, err := e.Execute(models.ExecuteRequest{
		Command:     "sleep 30",
		ProjectPath: t.TempDir(),
	})
	require.NoError(t, err)

	require.NoError(t, e.Cancel(res.ExecutionID))

	terminal := c.waitTerminal(t)
	assert.Equal(t, models.OutputSystem, terminal.Type)

	exec, _ := e.Get(res.ExecutionID)
	assert.Equal(t, models.StatusCancelled, exec.Status)
	assert.NotNil(t, exec.EndedAt)
}

func TestCancelUnknownExecution(t *testing.T) {
	e := NewEngine(func(models.CliOutputEvent) {})
	err := e.Cancel("nope")
	require.Error(t, err)
}

func TestConcurrentExecutions(t *testing.T) {
	c := newCollector()
	e := NewEngine(c.emit)
	dir := t.TempDir()

	first, err := e.Execute(models.ExecuteRequest{Command: "echo a", ProjectPath: dir})
	require.NoError(t, err)
	second, err := e.Execute(models.ExecuteRequest{Command: "echo b", ProjectPath: dir})
	require.NoError(t, err)

	c.waitTerminal(t)
	c.waitTerminal(t)

	for _, id := range []string{first.ExecutionID, second.ExecutionID} {
		exec, ok := e.Get(id)
		require.True(t, ok)
		assert.Equal(t, models.StatusCompleted, exec.Status)
	}
}

func TestStepIDCarriedOnExecution(t *testing.T) {
	c := newCollector()
	e := NewEngine(c.emit)

	res, err := e.Execute(models.ExecuteRequest{
		Command:     "true",
		ProjectPath: t.TempDir(),
		StepID:      "step-7",
	})
	require.NoError(t, err)
	c.waitTerminal(t)

	exec, _ := e.Get(res.ExecutionID)
	assert.Equal(t, "step-7", exec.StepID)
}
