package core

import (
	"strings"
	"sync"
)

// TaskState is the lifecycle state of a Task.
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceled  TaskState = "canceled"
)

// IsTerminal reports whether no further transitions are possible from s.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	default:
		return false
	}
}

func isAllowedTransition(from, to TaskState) bool {
	switch from {
	case TaskStateSubmitted:
		return to == TaskStateWorking || to == TaskStateCanceled || to == TaskStateFailed
	case TaskStateWorking:
		return to == TaskStateCompleted || to == TaskStateFailed || to == TaskStateCanceled
	default:
		return false
	}
}

// Task is one routed, tracked request. Identifiers, text and the assigned
// specialist are fixed at construction. State and accumulated output are
// guarded and only move forward.
type Task struct {
	ID         string
	ContextID  string
	Text       string
	Specialist SpecialistDescriptor

	mu     sync.RWMutex
	state  TaskState
	output []string
}

// NewTask creates a task in the submitted state.
func NewTask(id, contextID, text string, specialist SpecialistDescriptor) *Task {
	return &Task{
		ID:         id,
		ContextID:  contextID,
		Text:       text,
		Specialist: specialist,
		state:      TaskStateSubmitted,
	}
}

// State returns the current lifecycle state.
func (t *Task) State() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.state
}

// Transition moves the task to the given state. Once a terminal state is set
// every further call fails, so the first terminal transition wins.
func (t *Task) Transition(to TaskState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !isAllowedTransition(t.state, to) {
		return &TransitionError{TaskID: t.ID, From: t.state, To: to}
	}

	t.state = to

	return nil
}

// Append records an output fragment. Fragments are only accepted while working.
func (t *Task) Append(fragment string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TaskStateWorking {
		return &TransitionError{TaskID: t.ID, From: t.state, To: TaskStateWorking}
	}

	t.output = append(t.output, fragment)

	return nil
}

// Output returns a copy of the fragments accumulated so far, in order.
func (t *Task) Output() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]string(nil), t.output...)
}

// OutputText returns the accumulated fragments concatenated.
func (t *Task) OutputText() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return strings.Join(t.output, "")
}
