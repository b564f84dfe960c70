package testutil

import (
	"time"

	"github.com/gautammanak1/taskmesh/core"
)

// EventBuilder provides a fluent helper for constructing events in tests.
// Example:
//
//	ev := NewEventBuilder().Task("t1", "c1").Partial("hello").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	id        string
	taskID    string
	contextID string
	ev        core.Event
	at        time.Time
}

// NewEventBuilder creates a builder for task "task-1" in context "ctx-1".
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{taskID: "task-1", contextID: "ctx-1", ev: core.Event{Kind: core.EventKindStatus, State: core.TaskStateWorking}}
}

// Task sets the correlation identifiers (chainable).
func (b *EventBuilder) Task(taskID, contextID string) *EventBuilder {
	b.taskID, b.contextID = taskID, contextID
	return b
}

// ID overrides the auto-generated event ID (chainable). Use mainly in tests where determinism matters.
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// At fixes the timestamp (chainable).
func (b *EventBuilder) At(t time.Time) *EventBuilder { b.at = t; return b }

// Partial makes the event a current_result fragment (chainable).
func (b *EventBuilder) Partial(fragment string) *EventBuilder {
	b.ev = core.Event{Kind: core.EventKindPartial, Fragment: fragment, Artifact: core.ArtifactCurrentResult}
	return b
}

// Consolidated makes the event a final_result fragment (chainable).
func (b *EventBuilder) Consolidated(output string) *EventBuilder {
	b.ev = core.Event{Kind: core.EventKindPartial, Fragment: output, Artifact: core.ArtifactFinalResult}
	return b
}

// Status makes the event a status update (chainable).
func (b *EventBuilder) Status(state core.TaskState, final bool) *EventBuilder {
	b.ev = core.Event{Kind: core.EventKindStatus, State: state, Final: final}
	return b
}

// Error makes the event an error notice (chainable).
func (b *EventBuilder) Error(message string) *EventBuilder {
	b.ev = core.Event{Kind: core.EventKindError, Message: message}
	return b
}

// Message sets the message of a status or error event (chainable).
func (b *EventBuilder) Message(m string) *EventBuilder { b.ev.Message = m; return b }

// Build constructs the core.Event value.
func (b *EventBuilder) Build() core.Event {
	ev := b.ev
	ev.ID = b.id
	if ev.ID == "" {
		ev.ID = core.NewID()
	}
	ev.TaskID = b.taskID
	ev.ContextID = b.contextID
	ev.Timestamp = b.at
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return ev
}
