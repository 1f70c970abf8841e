package lode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"
)

func TestClassifyError_Messages(t *testing.T) {
	tests := []struct {
		errMsg   string
		wantKind error
	}{
		{"context deadline exceeded", ErrTimeout},
		{"connection timeout after 30s", ErrTimeout},
		{"AccessDenied: you do not have access", ErrAccessDenied},
		{"received status 403", ErrAccessDenied},
		{"permission denied for /data/output", ErrPermissionDenied},
		{"open /tmp/file: EACCES", ErrPermissionDenied},
		{"write /data/output: no space left on device", ErrDiskFull},
		{"quota exceeded for user", ErrDiskFull},
		{"NoSuchKey: The specified key does not exist", ErrNotFound},
		{"NoSuchBucket: k2-archive", ErrNotFound},
		{"SlowDown: please reduce request rate", ErrThrottled},
		{"received status 429", ErrThrottled},
		{"NoCredentialProviders: no valid credential providers", ErrAuth},
		{"ExpiredToken: the security token has expired", ErrAuth},
		{"dial tcp 127.0.0.1:9000: connection refused", ErrNetwork},
		{"DNS lookup failed for bucket.s3.amazonaws.com", ErrNetwork},
		{"something completely unexpected happened", ErrUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.errMsg, func(t *testing.T) {
			if got := classifyError(errors.New(tt.errMsg)); !errors.Is(got, tt.wantKind) {
				t.Errorf("classifyError(%q) = %v, want %v", tt.errMsg, got, tt.wantKind)
			}
		})
	}
}

func TestClassifyError_Typed(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind error
	}{
		{"deadline", fmt.Errorf("put: %w", context.DeadlineExceeded), ErrTimeout},
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, ErrPermissionDenied},
		{"not exist", &fs.PathError{Op: "open", Path: "/x", Err: syscall.ENOENT}, ErrNotFound},
		{"enospc", &fs.PathError{Op: "write", Path: "/x", Err: syscall.ENOSPC}, ErrDiskFull},
		{"econnrefused", &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}, ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); !errors.Is(got, tt.wantKind) {
				t.Errorf("classifyError(%v) = %v, want %v", tt.err, got, tt.wantKind)
			}
		})
	}
}

func TestWrap_NilPassesThrough(t *testing.T) {
	if err := WrapWriteError(nil, "p"); err != nil {
		t.Errorf("WrapWriteError(nil) = %v", err)
	}
	if err := WrapReadError(nil, "p"); err != nil {
		t.Errorf("WrapReadError(nil) = %v", err)
	}
	if err := WrapInitError(nil, "d"); err != nil {
		t.Errorf("WrapInitError(nil) = %v", err)
	}
}

func TestStorageError_Chain(t *testing.T) {
	cause := errors.New("SlowDown: reduce rate")
	err := WrapWriteError(cause, "datasets/k2-creek/files/Result.xml")

	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %T", err)
	}
	if se.Op != "write" || se.Path != "datasets/k2-creek/files/Result.xml" {
		t.Errorf("Op=%q Path=%q", se.Op, se.Path)
	}
	if !errors.Is(err, ErrThrottled) {
		t.Error("errors.Is(err, ErrThrottled) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("underlying cause lost from chain")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("error must not match an unrelated kind")
	}
}

func TestWrap_DoesNotDoubleWrap(t *testing.T) {
	inner := WrapWriteError(errors.New("disk full"), "a")
	outer := WrapInitError(inner, "b")
	if outer != inner {
		t.Errorf("already classified error was rewrapped: %v", outer)
	}
}
