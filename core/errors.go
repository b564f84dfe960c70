package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName indicates a specialist name registered twice.
	ErrDuplicateName = errors.New("duplicate specialist name")
	// ErrNoSpecialistAvailable indicates routing against an empty registry.
	ErrNoSpecialistAvailable = errors.New("no specialist available")
	// ErrExecutorStream indicates a specialist failed while streaming.
	ErrExecutorStream = errors.New("executor stream failed")
	// ErrRelayClosed indicates a publish after the terminal event.
	ErrRelayClosed = errors.New("relay closed")
	// ErrInvalidTransition indicates a task state change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid task state transition")
	// ErrOutputLimitExceeded indicates a task produced more output than allowed.
	ErrOutputLimitExceeded = errors.New("output limit exceeded")
	// ErrPresetKeywords indicates a descriptor registered with Keywords already set.
	ErrPresetKeywords = errors.New("keywords are derived from specialties and must not be preset")
)

// DuplicateNameError is returned when registering a name that already exists.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("specialist %q already registered", e.Name)
}

func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

// NoSpecialistAvailableError is returned when the registry is empty.
type NoSpecialistAvailableError struct{}

func (e *NoSpecialistAvailableError) Error() string {
	return "no specialist available: registry is empty"
}

func (e *NoSpecialistAvailableError) Unwrap() error { return ErrNoSpecialistAvailable }

// ExecutorStreamError wraps a failure raised by a specialist mid-stream.
type ExecutorStreamError struct {
	Specialist string
	Err        error
}

func (e *ExecutorStreamError) Error() string {
	return fmt.Sprintf("specialist %s: %v", e.Specialist, e.Err)
}

func (e *ExecutorStreamError) Unwrap() []error { return []error{ErrExecutorStream, e.Err} }

// Reason returns the underlying failure message without decoration.
func (e *ExecutorStreamError) Reason() string {
	if e.Err == nil {
		return "unknown executor error"
	}

	return e.Err.Error()
}

// RelayClosedError guards against publishing past a task's terminal event.
type RelayClosedError struct {
	TaskID string
}

func (e *RelayClosedError) Error() string {
	return fmt.Sprintf("relay for task %s closed: terminal event already published", e.TaskID)
}

func (e *RelayClosedError) Unwrap() error { return ErrRelayClosed }

// TransitionError reports a rejected task state change.
type TransitionError struct {
	TaskID string
	From   TaskState
	To     TaskState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %s: cannot transition from %s to %s", e.TaskID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ErrTaskCanceled is the cancellation cause recorded for caller-initiated cancels.
var ErrTaskCanceled = errors.New("task canceled")
