package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind discriminates the variants carried by Event.
type EventKind string

const (
	// EventKindPartial carries one output fragment.
	EventKindPartial EventKind = "partial"
	// EventKindStatus carries a lifecycle state; Final marks the terminal one.
	EventKindStatus EventKind = "status"
	// EventKindError carries a human-readable failure reason.
	EventKindError EventKind = "error"
)

// Artifact names attached to partial results.
const (
	ArtifactCurrentResult = "current_result"
	ArtifactFinalResult   = "final_result"
)

// Event is the unit flowing through a relay from a task's controller to its
// caller. After publication it should be treated as immutable.
//
// For any task at most one status event with Final set is ever published and
// nothing follows it.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	TaskID    string    `json:"task_id"`
	ContextID string    `json:"context_id"`
	Fragment  string    `json:"fragment,omitempty"`
	Artifact  string    `json:"artifact,omitempty"`
	State     TaskState `json:"state,omitempty"`
	Final     bool      `json:"final,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newEvent(kind EventKind, taskID, contextID string) Event {
	return Event{
		ID:        NewID(),
		Kind:      kind,
		TaskID:    taskID,
		ContextID: contextID,
		Timestamp: time.Now().UTC(),
	}
}

// NewPartialResult creates a streamed fragment event.
func NewPartialResult(taskID, contextID, fragment string) Event {
	e := newEvent(EventKindPartial, taskID, contextID)
	e.Fragment = fragment
	e.Artifact = ArtifactCurrentResult

	return e
}

// NewConsolidatedResult creates the partial result carrying the whole
// accumulated output of a task.
func NewConsolidatedResult(taskID, contextID, output string) Event {
	e := newEvent(EventKindPartial, taskID, contextID)
	e.Fragment = output
	e.Artifact = ArtifactFinalResult

	return e
}

// NewStatusUpdate creates a status event. Final must only be set for terminal states.
func NewStatusUpdate(taskID, contextID string, state TaskState, final bool) Event {
	e := newEvent(EventKindStatus, taskID, contextID)
	e.State = state
	e.Final = final

	return e
}

// NewErrorNotice creates an error event carrying message verbatim.
func NewErrorNotice(taskID, contextID, message string) Event {
	e := newEvent(EventKindError, taskID, contextID)
	e.Message = message

	return e
}

// NewID generates a new unique identifier for events, tasks and contexts.
func NewID() string { return uuid.NewString() }

// IsTerminal reports whether this is the final status event of a task.
func (e Event) IsTerminal() bool { return e.Kind == EventKindStatus && e.Final }

// IsPartial reports whether this event carries an output fragment.
func (e Event) IsPartial() bool { return e.Kind == EventKindPartial }
