// Package uistore holds the UI-side projections of host state.
//
// The host process owns the real watchers and child processes; these stores
// only mirror what the host reports over the bridge. Stores are guarded by a
// mutex because push events arrive on the connection's reader goroutine while
// the UI thread reads derived views.
package uistore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/hearthdesk/hearth/logging"
	"github.com/hearthdesk/hearth/pkg/models"
)

// MaxLogs bounds the aggregate log collection across all executions. Oldest
// entries are evicted first once the bound is exceeded.
const MaxLogs = 10000

// Bridge is the transport the stores talk to the host daemon through.
// *client.Client satisfies it; tests substitute a fake.
type Bridge interface {
	Request(ctx context.Context, channel string, payload map[string]interface{}) (map[string]interface{}, error)
	Subscribe(channel string, fn func(payload map[string]interface{})) func()
}

// ExecStore mirrors host-side executions and their log transcript.
type ExecStore struct {
	bridge Bridge
	logger *logrus.Entry

	mu          sync.Mutex
	executions  map[string]*models.Execution
	logs        []models.LogEntry
	activeID    string
	unsubscribe func()
}

// NewExecStore creates an empty store backed by the given bridge.
func NewExecStore(bridge Bridge) *ExecStore {
	return &ExecStore{
		bridge:     bridge,
		logger:     logging.NewLogger("exec-store"),
		executions: make(map[string]*models.Execution),
	}
}

// ExecuteCommand issues a cli:execute request. On success it records a local
// Execution mirroring the host's acknowledgment, appends a synthetic
// command-type log entry, and marks the execution active. On failure it
// returns an empty id and leaves the store untouched.
func (s *ExecStore) ExecuteCommand(ctx context.Context, command, projectPath, stepID string) (string, error) {
	payload := map[string]interface{}{
		"command":     command,
		"projectPath": projectPath,
		"mode":        "shell",
	}
	if stepID != "" {
		payload["stepId"] = stepID
	}

	resp, err := s.bridge.Request(ctx, models.ChannelCliExecute, payload)
	if err != nil {
		return "", err
	}

	var result models.ExecuteResult
	if err := decodeEvent(resp, &result); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.executions[result.ExecutionID] = &models.Execution{
		ID:          result.ExecutionID,
		Command:     command,
		ProjectPath: projectPath,
		StepID:      stepID,
		Status:      result.Status,
		StartedAt:   result.StartedAt,
	}
	s.activeID = result.ExecutionID

	s.addLogLocked(models.LogEntry{
		ExecutionID: result.ExecutionID,
		Type:        models.OutputCommand,
		Content:     "$ " + command,
		Timestamp:   time.Now(),
	})

	return result.ExecutionID, nil
}

// CancelExecution issues a cli:cancel request. On acknowledgment it
// optimistically marks the local execution cancelled; the terminal output
// event later confirms. Returns false without mutating state when the
// request fails.
func (s *ExecStore) CancelExecution(ctx context.Context, executionID string) bool {
	resp, err := s.bridge.Request(ctx, models.ChannelCliCancel, map[string]interface{}{
		"executionId": executionID,
	})
	if err != nil {
		s.logger.WithError(err).WithField("executionId", executionID).Warn("Cancel request failed")
		return false
	}

	var result models.CancelResult
	if err := decodeEvent(resp, &result); err != nil || !result.Success {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if exec, ok := s.executions[executionID]; ok {
		now := time.Now()
		exec.Status = models.StatusCancelled
		exec.EndedAt = &now
	}
	return true
}

// AddLog assigns a fresh id to entry and appends it, evicting the oldest
// entries past MaxLogs.
func (s *ExecStore) AddLog(entry models.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLogLocked(entry)
}

func (s *ExecStore) addLogLocked(entry models.LogEntry) {
	entry.ID = uuid.NewString()
	s.logs = append(s.logs, entry)
	if surplus := len(s.logs) - MaxLogs; surplus > 0 {
		s.logs = append(s.logs[:0:0], s.logs[surplus:]...)
	}
}

// SubscribeToCliOutput registers the store on the cli:output stream.
// Calling it while already subscribed is a no-op.
func (s *ExecStore) SubscribeToCliOutput() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		return
	}
	s.unsubscribe = s.bridge.Subscribe(models.ChannelCliOutput, s.handleOutput)
}

// UnsubscribeFromCliOutput detaches from the cli:output stream. Idempotent.
func (s *ExecStore) UnsubscribeFromCliOutput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribeLocked()
}

func (s *ExecStore) unsubscribeLocked() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *ExecStore) handleOutput(payload map[string]interface{}) {
	var ev models.CliOutputEvent
	if err := decodeEvent(payload, &ev); err != nil {
		s.logger.WithError(err).Warn("Malformed cli:output event")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.addLogLocked(models.LogEntry{
		ExecutionID: ev.ExecutionID,
		Type:        ev.Type,
		Content:     ev.Content,
		Timestamp:   ev.Timestamp,
	})

	// A system event carrying an exit code is the structured terminal
	// signal; the message text is never parsed.
	if ev.Type == models.OutputSystem && ev.ExitCode != nil {
		exec, ok := s.executions[ev.ExecutionID]
		if !ok {
			return
		}
		exec.ExitCode = ev.ExitCode
		ended := ev.Timestamp
		exec.EndedAt = &ended
		if exec.Status != models.StatusCancelled {
			if *ev.ExitCode == 0 {
				exec.Status = models.StatusCompleted
			} else {
				exec.Status = models.StatusFailed
			}
		}
	}
}

// Execution returns a snapshot of the execution with the given id.
func (s *ExecStore) Execution(id string) (models.Execution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[id]
	if !ok {
		return models.Execution{}, false
	}
	return *exec, true
}

// ActiveExecutionID returns the id set by the most recent ExecuteCommand,
// or an empty string.
func (s *ExecStore) ActiveExecutionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// CurrentLogs returns the entries belonging to the active execution.
func (s *ExecStore) CurrentLogs() []models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return nil
	}
	var out []models.LogEntry
	for _, entry := range s.logs {
		if entry.ExecutionID == s.activeID {
			out = append(out, entry)
		}
	}
	return out
}

// IsExecuting reports whether any execution is queued or running.
func (s *ExecStore) IsExecuting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, exec := range s.executions {
		if !exec.Status.Terminal() {
			return true
		}
	}
	return false
}

// LogsForStep returns entries belonging to executions tagged with stepID.
func (s *ExecStore) LogsForStep(stepID string) []models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]bool)
	for id, exec := range s.executions {
		if exec.StepID == stepID {
			ids[id] = true
		}
	}

	var out []models.LogEntry
	for _, entry := range s.logs {
		if ids[entry.ExecutionID] {
			out = append(out, entry)
		}
	}
	return out
}

// LogCount returns the size of the aggregate log collection.
func (s *ExecStore) LogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

// Logs returns a snapshot of the whole log collection.
func (s *ExecStore) Logs() []models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LogEntry(nil), s.logs...)
}

// ClearLogs removes every log entry.
func (s *ExecStore) ClearLogs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = nil
}

// ClearLogsFor removes only the entries belonging to executionID.
func (s *ExecStore) ClearLogsFor(executionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.logs[:0]
	for _, entry := range s.logs {
		if entry.ExecutionID != executionID {
			kept = append(kept, entry)
		}
	}
	s.logs = kept
}

// Reset clears all local state and detaches from the output stream.
func (s *ExecStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = nil
	s.executions = make(map[string]*models.Execution)
	s.activeID = ""
	s.unsubscribeLocked()
}

// decodeEvent maps a JSON-decoded payload onto target, converting RFC 3339
// timestamp strings to time.Time.
func decodeEvent(payload map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     target,
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(payload)
}
