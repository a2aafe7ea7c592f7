package editor

import (
	"errors"
	"fmt"
)

var (
	ErrNoInstance       = errors.New("editor instance not ready")
	ErrSessionDestroyed = errors.New("editor session destroyed")
)

// InitializationError is recorded when the factory fails. The session goes
// back to Uninitialized and retries on the next user signal.
type InitializationError struct {
	Holder string
	Err    error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initializing editor on %q: %v", e.Holder, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// DestructionError is recorded when an instance fails to dispose. The
// reference is dropped regardless.
type DestructionError struct {
	Holder string
	Err    error
}

func (e *DestructionError) Error() string {
	return fmt.Sprintf("destroying editor on %q: %v", e.Holder, e.Err)
}

func (e *DestructionError) Unwrap() error {
	return e.Err
}
