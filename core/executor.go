package core

import "context"

// Executor is the capability surface every specialist exposes to the runner.
// The core is agnostic to what produces the fragments (a model token stream,
// a remote agent, a static report).
//
// Semantics & Guarantees:
//   - StreamExecute returns a finite, non-restartable stream. The fragments
//     channel is closed when the execution ends, successfully or not.
//   - At most one error is delivered, and it is sent before the fragments
//     channel closes. The error channel must be buffered (size 1) so a
//     producer never blocks on it.
//   - Implementations should stop producing when ctx is done and end the
//     stream with ctx.Err(). A stream that closes cleanly is a completed one,
//     even when cancellation was requested concurrently.
//   - RequestCancel is best-effort and must not block. An executor instance
//     serves a single task, so RequestCancel targets that task only.
type Executor interface {
	StreamExecute(ctx context.Context, text string) (<-chan string, <-chan error)
	RequestCancel()
}

// Resolver produces a fresh Executor for the specialist chosen by the router.
type Resolver interface {
	Resolve(specialist SpecialistDescriptor) (Executor, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(specialist SpecialistDescriptor) (Executor, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(specialist SpecialistDescriptor) (Executor, error) {
	return f(specialist)
}
