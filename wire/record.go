package wire

import (
	"time"

	"github.com/gautammanak1/taskmesh/core"
)

// Record is the outbound form of a task event.
type Record struct {
	TaskID    string  `json:"taskId" cbor:"taskId"`
	ContextID string  `json:"contextId" cbor:"contextId"`
	Kind      string  `json:"kind" cbor:"kind"`
	Payload   Payload `json:"payload" cbor:"payload"`
}

// Payload holds the kind-specific fields of a Record.
type Payload struct {
	EventID   string `json:"eventId,omitempty" cbor:"eventId,omitempty"`
	Artifact  string `json:"artifact,omitempty" cbor:"artifact,omitempty"`
	Text      string `json:"text,omitempty" cbor:"text,omitempty"`
	State     string `json:"state,omitempty" cbor:"state,omitempty"`
	Final     bool   `json:"final,omitempty" cbor:"final,omitempty"`
	Message   string `json:"message,omitempty" cbor:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty" cbor:"timestamp,omitempty"`
}

// FromEvent converts ev into its Record.
func FromEvent(ev core.Event) Record {
	rec := Record{
		TaskID:    ev.TaskID,
		ContextID: ev.ContextID,
		Kind:      string(ev.Kind),
		Payload:   Payload{EventID: ev.ID},
	}
	if !ev.Timestamp.IsZero() {
		rec.Payload.Timestamp = ev.Timestamp.UTC().Format(time.RFC3339Nano)
	}

	switch ev.Kind {
	case core.EventKindPartial:
		rec.Payload.Artifact = ev.Artifact
		rec.Payload.Text = ev.Fragment
	case core.EventKindStatus:
		rec.Payload.State = string(ev.State)
		rec.Payload.Final = ev.Final
		rec.Payload.Message = ev.Message
	case core.EventKindError:
		rec.Payload.Message = ev.Message
	}

	return rec
}
