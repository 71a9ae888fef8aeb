package errors

import (
	"fmt"
	"os"
	"time"
)

// RateLimitExceeded creates a rate limit rejection for a channel. The
// retryAfter duration tells the caller when the current window expires.
func RateLimitExceeded(channel string, retryAfter time.Duration) *HearthError {
	return New(ErrCodeRateLimitExceeded,
		fmt.Sprintf("rate limit exceeded for channel '%s'", channel)).
		WithDetail("channel", channel).
		WithDetail("retryAfterMs", retryAfter.Milliseconds())
}

// ChannelUnknown creates an error for a request on an unregistered channel
func ChannelUnknown(channel string) *HearthError {
	return New(ErrCodeChannelUnknown, fmt.Sprintf("unknown channel '%s'", channel)).
		WithDetail("channel", channel)
}

// InvalidRequest creates an error for a malformed request payload
func InvalidRequest(channel string, reason string) *HearthError {
	return New(ErrCodeInvalidRequest,
		fmt.Sprintf("invalid request on channel '%s': %s", channel, reason)).
		WithDetail("channel", channel)
}

// PathNotFound creates an error for a missing filesystem path
func PathNotFound(path string) *HearthError {
	return New(ErrCodeNotFound, fmt.Sprintf("path not found: %s", path)).
		WithDetail("path", path)
}

// PermissionDenied creates an error for an OS-level access rejection
func PermissionDenied(path string) *HearthError {
	return New(ErrCodePermissionDenied, fmt.Sprintf("permission denied: %s", path)).
		WithDetail("path", path)
}

// FileTooLarge creates an error for a file exceeding the caller's size limit
func FileTooLarge(path string, size, maxSize int64) *HearthError {
	return New(ErrCodeFileTooLarge,
		fmt.Sprintf("file %s is %d bytes, exceeds limit of %d", path, size, maxSize)).
		WithDetail("path", path).
		WithDetail("size", size).
		WithDetail("maxSize", maxSize)
}

// SpawnFailed creates an error for a process that could not be started
func SpawnFailed(command string, err error) *HearthError {
	return Wrap(err, ErrCodeSpawnFailed, fmt.Sprintf("failed to spawn command: %s", command)).
		WithDetail("command", command)
}

// ExecutionNotFound creates an error for an unknown execution id
func ExecutionNotFound(id string) *HearthError {
	return New(ErrCodeExecutionNotFound, fmt.Sprintf("execution '%s' not found", id)).
		WithDetail("executionId", id)
}

// WatcherFault creates an error for a single path's watch failure
func WatcherFault(path string, err error) *HearthError {
	return Wrap(err, ErrCodeWatcherFault, fmt.Sprintf("watch failed for path: %s", path)).
		WithDetail("path", path)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *HearthError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *HearthError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// FromOSError maps an OS filesystem error onto the error taxonomy.
// ENOENT-class errors become NOT_FOUND, EACCES-class become PERMISSION_DENIED,
// anything else is wrapped as INTERNAL_ERROR.
func FromOSError(err error, path string) *HearthError {
	switch {
	case os.IsNotExist(err):
		return PathNotFound(path).WithDetail("cause", err.Error())
	case os.IsPermission(err):
		return PermissionDenied(path).WithDetail("cause", err.Error())
	default:
		return Wrap(err, ErrCodeInternal, fmt.Sprintf("filesystem error on %s", path)).
			WithDetail("path", path)
	}
}
