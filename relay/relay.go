// Package relay implements the ordered conduit that carries a task's events
// from its controller to the caller.
//
// A Relay is bound to exactly one task. Events are delivered in publish order
// through a bounded buffer; when the buffer is full Publish blocks until the
// consumer catches up or the publish context is done. The stream ends right
// after the terminal status event.
package relay

import (
	"context"
	"sync"

	"github.com/gautammanak1/taskmesh/core"
)

// DefaultBufferSize is used when New receives a non-positive size.
const DefaultBufferSize = 100

// Relay is a FIFO, bounded, single-task event channel.
type Relay struct {
	taskID string
	ch     chan core.Event

	// sendMu serializes publishers and owns close(ch).
	sendMu   sync.Mutex
	chClosed bool

	// mu guards closed only and is never held while blocking.
	mu        sync.Mutex
	closed    bool
	abandoned chan struct{}
}

// New creates a relay for taskID with the given buffer size.
func New(taskID string, bufferSize int) *Relay {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Relay{
		taskID:    taskID,
		ch:        make(chan core.Event, bufferSize),
		abandoned: make(chan struct{}),
	}
}

// TaskID returns the task this relay is bound to.
func (r *Relay) TaskID() string { return r.taskID }

// Publish appends ev to the stream. Publishing after the terminal event fails
// with *core.RelayClosedError. A terminal event closes the stream once it is
// enqueued. If ctx ends while waiting for buffer space the event is dropped
// and ctx.Err() is returned; a Close while waiting drops it with
// *core.RelayClosedError.
func (r *Relay) Publish(ctx context.Context, ev core.Event) error {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	if r.Closed() {
		return &core.RelayClosedError{TaskID: r.taskID}
	}

	select {
	case r.ch <- ev:
	default:
		select {
		case r.ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		case <-r.abandoned:
			return &core.RelayClosedError{TaskID: r.taskID}
		}
	}

	if ev.IsTerminal() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		r.closeChannel()
	}

	return nil
}

// closeChannel must be called with sendMu held.
func (r *Relay) closeChannel() {
	if r.chClosed {
		return
	}
	r.chClosed = true
	close(r.ch)
}

// Events returns the consumer side of the relay. The channel is closed after
// the terminal event, or when the relay is abandoned with Close.
func (r *Relay) Events() <-chan core.Event { return r.ch }

// Closed reports whether the terminal event was published or the relay was
// abandoned. It never waits for a publisher blocked on a full buffer.
func (r *Relay) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// Close abandons the relay without a terminal event. It is used when the
// terminal event cannot be delivered (the caller went away). A publisher
// blocked on a full buffer is released. Close is idempotent.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.abandoned)
	r.mu.Unlock()

	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	r.closeChannel()
}

// Collect drains events until the stream ends or ctx is done, returning what
// was read so far.
func Collect(ctx context.Context, events <-chan core.Event) ([]core.Event, error) {
	var out []core.Event
	for {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return out, nil
			}
			out = append(out, ev)
		}
	}
}
