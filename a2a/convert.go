package a2a

import (
	"time"

	"github.com/gautammanak1/taskmesh/core"
)

// NewTextMessage builds a user message carrying text.
func NewTextMessage(text string) Message {
	return Message{
		Kind:      "message",
		MessageID: core.NewID(),
		Role:      "user",
		Parts:     []Part{{Kind: "text", Text: text}},
	}
}

func agentMessage(ev core.Event, text string) *Message {
	if text == "" {
		return nil
	}
	return &Message{
		Kind:      "message",
		MessageID: ev.ID,
		Role:      "agent",
		Parts:     []Part{{Kind: "text", Text: text}},
		TaskID:    ev.TaskID,
		ContextID: ev.ContextID,
	}
}

// FromEvent converts a task event into its stream result.
func FromEvent(ev core.Event) any {
	switch ev.Kind {
	case core.EventKindPartial:
		return TaskArtifactUpdateEvent{
			Kind:      KindArtifactUpdate,
			TaskID:    ev.TaskID,
			ContextID: ev.ContextID,
			Artifact: Artifact{
				ArtifactID: ev.Artifact,
				Name:       ev.Artifact,
				Parts:      []Part{{Kind: "text", Text: ev.Fragment}},
			},
			Append:    ev.Artifact == core.ArtifactCurrentResult,
			LastChunk: ev.Artifact == core.ArtifactFinalResult,
		}
	case core.EventKindError:
		return TaskStatusUpdateEvent{
			Kind:      KindStatusUpdate,
			TaskID:    ev.TaskID,
			ContextID: ev.ContextID,
			Status: TaskStatus{
				State:     string(core.TaskStateFailed),
				Message:   agentMessage(ev, ev.Message),
				Timestamp: timestamp(ev.Timestamp),
			},
			Metadata: map[string]any{metadataNotice: noticeError},
		}
	default:
		return TaskStatusUpdateEvent{
			Kind:      KindStatusUpdate,
			TaskID:    ev.TaskID,
			ContextID: ev.ContextID,
			Status: TaskStatus{
				State:     string(ev.State),
				Message:   agentMessage(ev, ev.Message),
				Timestamp: timestamp(ev.Timestamp),
			},
			Final: ev.Final,
		}
	}
}

// IsErrorNotice reports whether a status update carries an error notice
// rather than a state change.
func (e TaskStatusUpdateEvent) IsErrorNotice() bool {
	return e.Metadata[metadataNotice] == noticeError
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
