package errors

import (
	"fmt"
	"os"
	"testing"
	"time"
)

func TestHearthError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeNotFound, "path not found")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeSpawnFailed, "spawn failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeSpawnFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("path", "/tmp/x").WithDetail("size", 42)
	if detailed.Details["path"] != "/tmp/x" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	// Test RateLimitExceeded
	err := RateLimitExceeded("cli:execute", 750*time.Millisecond)
	if err.Code != ErrCodeRateLimitExceeded {
		t.Errorf("expected code %s, got %s", ErrCodeRateLimitExceeded, err.Code)
	}
	if err.Details["channel"] != "cli:execute" {
		t.Error("RateLimitExceeded should include channel detail")
	}
	if err.Details["retryAfterMs"] != int64(750) {
		t.Errorf("RateLimitExceeded should include retryAfterMs detail, got %v", err.Details["retryAfterMs"])
	}

	// Test FileTooLarge
	err = FileTooLarge("/p/big.json", 2048, 1024)
	if err.Code != ErrCodeFileTooLarge {
		t.Errorf("expected code %s, got %s", ErrCodeFileTooLarge, err.Code)
	}
	if err.Details["size"] != int64(2048) {
		t.Error("FileTooLarge should include size detail")
	}

	// Test ExecutionNotFound
	err = ExecutionNotFound("abc-123")
	if err.Details["executionId"] != "abc-123" {
		t.Error("ExecutionNotFound should include executionId detail")
	}
}

func TestFromOSError(t *testing.T) {
	notExist := &os.PathError{Op: "open", Path: "/missing", Err: os.ErrNotExist}
	if got := FromOSError(notExist, "/missing"); got.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND for ENOENT, got %s", got.Code)
	}

	denied := &os.PathError{Op: "open", Path: "/secret", Err: os.ErrPermission}
	if got := FromOSError(denied, "/secret"); got.Code != ErrCodePermissionDenied {
		t.Errorf("expected PERMISSION_DENIED for EACCES, got %s", got.Code)
	}

	other := fmt.Errorf("disk on fire")
	if got := FromOSError(other, "/dev/x"); got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR for unclassified error, got %s", got.Code)
	}
}
