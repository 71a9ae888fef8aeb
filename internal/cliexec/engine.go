// Package cliexec spawns and supervises external commands on behalf of the
// UI. Each execution gets a unique id and an ordered stream of output events;
// lifecycle completion is reported as a structured terminal event carrying
// the exit code.
package cliexec

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/logging"
	"github.com/hearthdesk/hearth/pkg/models"
	"github.com/sirupsen/logrus"
)

// Emitter receives every output event the engine produces. Events for one
// execution arrive in order; no ordering holds across executions.
type Emitter func(models.CliOutputEvent)

// execution is the engine-side record for one child process.
type execution struct {
	models.Execution

	cmd             *exec.Cmd
	cancelRequested bool
}

// Engine runs external commands as child processes of the host.
type Engine struct {
	mu         sync.Mutex
	executions map[string]*execution
	emit       Emitter
	shell      string
	killGrace  time.Duration
	logger     *logrus.Entry

	// wg tracks supervision goroutines so Shutdown can drain them.
	wg sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithShell sets the shell used to run command strings.
func WithShell(shell string) Option {
	return func(e *Engine) { e.shell = shell }
}

// WithKillGrace sets how long a cancelled process gets after SIGTERM before
// SIGKILL.
func WithKillGrace(d time.Duration) Option {
	return func(e *Engine) { e.killGrace = d }
}

// NewEngine creates an Engine that reports output through emit.
func NewEngine(emit Emitter, opts ...Option) *Engine {
	e := &Engine{
		executions: make(map[string]*execution),
		emit:       emit,
		shell:      "/bin/sh",
		killGrace:  5 * time.Second,
		logger:     logging.NewLogger("cliexec"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute spawns req.Command in req.ProjectPath and returns as soon as the
// process has started. If the spawn fails, no execution record is kept and
// the caller gets a SPAWN_FAILED error.
func (e *Engine) Execute(req models.ExecuteRequest) (*models.ExecuteResult, error) {
	id := uuid.NewString()
	rec := &execution{
		Execution: models.Execution{
			ID:          id,
			Command:     req.Command,
			ProjectPath: req.ProjectPath,
			StepID:      req.StepID,
			Status:      models.StatusQueued,
			StartedAt:   time.Now(),
		},
	}

	cmd := exec.Command(e.shell, "-c", req.Command)
	cmd.Dir = req.ProjectPath
	// Child gets its own process group so cancellation signals the whole
	// pipeline, not just the shell.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	rec.cmd = cmd

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.SpawnFailed(req.Command, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.SpawnFailed(req.Command, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.SpawnFailed(req.Command, err)
	}

	rec.Status = models.StatusRunning

	e.mu.Lock()
	e.executions[id] = rec
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"executionId": id,
		"command":     req.Command,
		"projectPath": req.ProjectPath,
	}).Info("Started execution")

	var pumps sync.WaitGroup
	pumps.Add(2)
	go e.pump(id, models.OutputStdout, stdout, &pumps)
	go e.pump(id, models.OutputStderr, stderr, &pumps)

	e.wg.Add(1)
	go e.supervise(rec, &pumps)

	return &models.ExecuteResult{
		ExecutionID: id,
		Status:      rec.Status,
		StartedAt:   rec.StartedAt,
	}, nil
}

// Cancel requests termination of an execution's process. It acknowledges
// receipt only; the caller observes the terminal cli:output event to learn
// the final status.
func (e *Engine) Cancel(id string) error {
	e.mu.Lock()
	rec, ok := e.executions[id]
	if !ok {
		e.mu.Unlock()
		return errors.ExecutionNotFound(id)
	}
	if rec.Status.Terminal() {
		e.mu.Unlock()
		return nil
	}
	rec.cancelRequested = true
	cmd := rec.cmd
	grace := e.killGrace
	e.mu.Unlock()

	e.logger.WithField("executionId", id).Info("Cancellation requested")

	if cmd.Process == nil {
		return nil
	}
	pgid := -cmd.Process.Pid

	// Fire-and-forget: SIGTERM now, SIGKILL if the group outlives the
	// grace period. The supervisor reports the terminal state.
	_ = syscall.Kill(pgid, syscall.SIGTERM)
	go func() {
		time.Sleep(grace)
		e.mu.Lock()
		stillRunning := !rec.Status.Terminal()
		e.mu.Unlock()
		if stillRunning {
			_ = syscall.Kill(pgid, syscall.SIGKILL)
		}
	}()

	return nil
}

// Get returns a snapshot of one execution.
func (e *Engine) Get(id string) (models.Execution, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.executions[id]
	if !ok {
		return models.Execution{}, false
	}
	return rec.Execution, true
}

// List returns snapshots of all executions.
func (e *Engine) List() []models.Execution {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Execution, 0, len(e.executions))
	for _, rec := range e.executions {
		out = append(out, rec.Execution)
	}
	return out
}

// Shutdown waits for all supervision goroutines to finish. It does not kill
// running processes; callers cancel them first if desired.
func (e *Engine) Shutdown() {
	e.wg.Wait()
}

// pump copies one output stream into ordered events for the execution.
func (e *Engine) pump(id string, outputType models.OutputType, r io.Reader, pumps *sync.WaitGroup) {
	defer pumps.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		e.emit(models.CliOutputEvent{
			ExecutionID: id,
			Type:        outputType,
			Content:     scanner.Text(),
			Timestamp:   time.Now(),
		})
	}
}

// supervise waits for the process to exit, records the terminal state, and
// emits the structured terminal event.
func (e *Engine) supervise(rec *execution, pumps *sync.WaitGroup) {
	defer e.wg.Done()

	// Output pumps drain before Wait closes the pipes, preserving
	// per-execution event order.
	pumps.Wait()
	err := rec.cmd.Wait()

	exitCode := 0
	signalled := false
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				signalled = true
			}
		} else {
			exitCode = -1
		}
	}

	now := time.Now()

	e.mu.Lock()
	switch {
	case rec.cancelRequested && (signalled || exitCode != 0):
		rec.Status = models.StatusCancelled
	case exitCode == 0:
		rec.Status = models.StatusCompleted
	default:
		rec.Status = models.StatusFailed
	}
	rec.EndedAt = &now
	rec.ExitCode = &exitCode
	status := rec.Status
	id := rec.ID
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"executionId": id,
		"status":      status,
		"exitCode":    exitCode,
	}).Info("Execution finished")

	code := exitCode
	e.emit(models.CliOutputEvent{
		ExecutionID: id,
		Type:        models.OutputSystem,
		Content:     terminalMessage(status, exitCode),
		Timestamp:   now,
		ExitCode:    &code,
	})
}

// terminalMessage renders the human-readable terminal line. Consumers must
// not parse it; the exit code travels as a structured field.
func terminalMessage(status models.ExecutionStatus, exitCode int) string {
	if status == models.StatusCancelled {
		return "Process cancelled"
	}
	return fmt.Sprintf("Process exited with code %d", exitCode)
}
