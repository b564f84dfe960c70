package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gautammanak1/taskmesh/core"
)

// ScriptedExecutor is a deterministic core.Executor for tests. It streams a
// fixed list of fragments, optionally holds the stream open, and optionally
// ends with an error.
// Example:
//
//	exec := NewScriptedExecutor("a", "b").WithError(errors.New("boom"))
//
// Chain only the behaviour you need; the zero configuration completes cleanly.
type ScriptedExecutor struct {
	fragments    []string
	err          error
	hold         chan struct{}
	ignoreCancel bool

	startOnce sync.Once
	started   chan struct{}
	release   sync.Once
	cancels   atomic.Int32

	mu   sync.Mutex
	text string
}

var _ core.Executor = (*ScriptedExecutor)(nil)

// NewScriptedExecutor creates an executor streaming fragments in order.
func NewScriptedExecutor(fragments ...string) *ScriptedExecutor {
	return &ScriptedExecutor{fragments: fragments, started: make(chan struct{})}
}

// WithError makes the stream fail with err after the fragments (chainable).
func (e *ScriptedExecutor) WithError(err error) *ScriptedExecutor { e.err = err; return e }

// Holding keeps the stream open after the fragments until Release or
// cancellation (chainable).
func (e *ScriptedExecutor) Holding() *ScriptedExecutor { e.hold = make(chan struct{}); return e }

// IgnoringCancel makes the executor ignore context cancellation, simulating a
// worker that never acknowledges (chainable). Combine with Holding.
func (e *ScriptedExecutor) IgnoringCancel() *ScriptedExecutor { e.ignoreCancel = true; return e }

// Release unblocks a Holding executor.
func (e *ScriptedExecutor) Release() {
	if e.hold == nil {
		return
	}
	e.release.Do(func() { close(e.hold) })
}

// Started is closed once StreamExecute has been called.
func (e *ScriptedExecutor) Started() <-chan struct{} { return e.started }

// Cancels returns how often RequestCancel was called.
func (e *ScriptedExecutor) Cancels() int { return int(e.cancels.Load()) }

// Text returns the request text passed to StreamExecute.
func (e *ScriptedExecutor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// RequestCancel implements core.Executor.
func (e *ScriptedExecutor) RequestCancel() { e.cancels.Add(1) }

// StreamExecute implements core.Executor.
func (e *ScriptedExecutor) StreamExecute(ctx context.Context, text string) (<-chan string, <-chan error) {
	e.mu.Lock()
	e.text = text
	e.mu.Unlock()

	out := make(chan string)
	errCh := make(chan error, 1)

	done := ctx.Done()
	if e.ignoreCancel {
		done = nil
	}

	go func() {
		defer close(out)
		defer close(errCh)

		e.startOnce.Do(func() { close(e.started) })

		for _, f := range e.fragments {
			select {
			case out <- f:
			case <-done:
				errCh <- ctx.Err()
				return
			}
		}

		if e.hold != nil {
			select {
			case <-e.hold:
			case <-done:
				errCh <- ctx.Err()
				return
			}
		}

		if e.err != nil {
			errCh <- e.err
		}
	}()

	return out, errCh
}

// Kinds returns the kind of every event, for compact ordering assertions.
func Kinds(events []core.Event) []core.EventKind {
	kinds := make([]core.EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// Fragments returns the fragments of the current_result partials in order.
func Fragments(events []core.Event) []string {
	var out []string
	for _, ev := range events {
		if ev.IsPartial() && ev.Artifact == core.ArtifactCurrentResult {
			out = append(out, ev.Fragment)
		}
	}
	return out
}

// Terminal returns the terminal status event, if present.
func Terminal(events []core.Event) (core.Event, bool) {
	for _, ev := range events {
		if ev.IsTerminal() {
			return ev, true
		}
	}
	return core.Event{}, false
}
