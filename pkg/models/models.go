// Package models defines the wire types crossing the host/UI bridge.
// Both the host process and the UI-side stores marshal these shapes, so
// field names here are the channel contract.
package models

import "time"

// Channel names form a closed, pre-registered set.
const (
	ChannelProjectOpen    = "project:open"
	ChannelProjectState   = "project:state"
	ChannelFileRead       = "file:read"
	ChannelFileChange     = "file:change"
	ChannelCliExecute     = "cli:execute"
	ChannelCliCancel      = "cli:cancel"
	ChannelCliOutput      = "cli:output"
	ChannelApprovalSubmit = "approval:submit"
	ChannelApprovalStatus = "approval:status"
)

// ExecutionStatus is the lifecycle state of one command execution.
type ExecutionStatus string

const (
	StatusQueued    ExecutionStatus = "queued"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether no further transitions can occur from this status.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// OutputType classifies a log line or output event.
type OutputType string

const (
	OutputStdout  OutputType = "stdout"
	OutputStderr  OutputType = "stderr"
	OutputSystem  OutputType = "system"
	OutputCommand OutputType = "command"
)

// ChangeType classifies a filesystem change.
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeModify ChangeType = "change"
	ChangeUnlink ChangeType = "unlink"
)

// Execution tracks one invocation of an external command end to end.
type Execution struct {
	ID          string          `json:"id"`
	Command     string          `json:"command"`
	ProjectPath string          `json:"projectPath"`
	StepID      string          `json:"stepId,omitempty"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
	EndedAt     *time.Time      `json:"endedAt,omitempty"`
	ExitCode    *int            `json:"exitCode,omitempty"`
}

// LogEntry is one line of the UI-side log transcript.
type LogEntry struct {
	ID          string     `json:"id"`
	ExecutionID string     `json:"executionId"`
	Type        OutputType `json:"type"`
	Content     string     `json:"content"`
	Timestamp   time.Time  `json:"timestamp"`
}

// CliOutputEvent is pushed on cli:output for each process output chunk or
// lifecycle transition. ExitCode is set only on the terminal system event,
// so consumers derive completion from structure rather than message text.
type CliOutputEvent struct {
	ExecutionID string     `json:"executionId"`
	Type        OutputType `json:"type"`
	Content     string     `json:"content"`
	Timestamp   time.Time  `json:"timestamp"`
	ExitCode    *int       `json:"exitCode,omitempty"`
}

// FileChangeEvent is pushed on file:change. Transient, never persisted.
type FileChangeEvent struct {
	Path       string     `json:"path"`
	ChangeType ChangeType `json:"changeType"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ExecuteRequest is the cli:execute request shape.
type ExecuteRequest struct {
	Command     string `json:"command"`
	ProjectPath string `json:"projectPath"`
	StepID      string `json:"stepId,omitempty"`
	Mode        string `json:"mode,omitempty"`
}

// ExecuteResult is the synchronous cli:execute acknowledgment. All further
// activity streams on cli:output.
type ExecuteResult struct {
	ExecutionID string          `json:"executionId"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
}

// CancelRequest is the cli:cancel request shape.
type CancelRequest struct {
	ExecutionID string `json:"executionId"`
}

// CancelResult acknowledges receipt of a cancel request, not completion.
type CancelResult struct {
	Success bool `json:"success"`
}

// ReadFileRequest is the file:read request shape.
type ReadFileRequest struct {
	Path        string `json:"path"`
	ProjectPath string `json:"projectPath"`
	MaxSize     int64  `json:"maxSize,omitempty"`
}

// ReadFileResult is the file:read response shape.
type ReadFileResult struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// OpenProjectRequest is the project:open request shape.
type OpenProjectRequest struct {
	Path string `json:"path"`
}

// ProjectState is the project snapshot returned by project:open and
// project:state.
type ProjectState struct {
	Path     string     `json:"path"`
	Name     string     `json:"name"`
	OpenedAt *time.Time `json:"openedAt,omitempty"`
	Open     bool       `json:"open"`
}

// ApprovalRequest is the approval:submit request shape.
type ApprovalRequest struct {
	StepID  string                 `json:"stepId,omitempty"`
	Summary string                 `json:"summary"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ApprovalRecord is returned by approval:submit and approval:status.
type ApprovalRecord struct {
	ID          string                 `json:"id"`
	StepID      string                 `json:"stepId,omitempty"`
	Summary     string                 `json:"summary"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Status      string                 `json:"status"`
	SubmittedAt time.Time              `json:"submittedAt"`
}

// ApprovalStatusRequest is the approval:status request shape.
type ApprovalStatusRequest struct {
	ID string `json:"id"`
}
