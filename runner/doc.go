// Package runner implements the task lifecycle controller of taskmesh.
//
// A Runner drives one task per call from submitted through working to exactly
// one terminal state (completed, failed or canceled), forwarding every output
// fragment of the specialist executor to the task's relay as it arrives.
//
// # Responsibilities (abridged)
//   - State machine enforcement (via core.Task transitions)
//   - Ordered partial-result relaying and optional consolidated output
//   - Failure capture without retry (specialist calls may have side effects)
//   - Cooperative, never-blocking cancellation by task id
//
// Cancellation races with natural completion: when the executor stream has
// already ended cleanly by the time cancellation is observed, the task still
// completes.
//
// See runner.go for the operational implementation details.
package runner
