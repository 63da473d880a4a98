package vfs

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrProviderExists   = errors.New("provider already registered")
	ErrNoDefault        = errors.New("no default provider set")
	ErrFileClosed       = errors.New("file is closed")
	ErrFileNotFound     = errors.New("file not found")
	ErrShortRead        = errors.New("short read")
	ErrReadOnly         = errors.New("file is read-only")
	ErrShmUnsupported   = errors.New("shared memory not supported by underlying file")
	ErrNotSupported     = errors.New("operation not supported")
)

// Error provides structured error information for VFS operations that
// originate in this layer. I/O-path errors from the underlying provider are
// propagated unchanged and never wrapped in this type.
type Error struct {
	Op   string // Operation that failed (e.g., "RegisterOverlay", "Open")
	Name string // File or provider name (if applicable)
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}
