// Package core provides the foundational domain types and contracts used by
// taskmesh. It defines:
//
//   - SpecialistDescriptor (identity and routing metadata of a capability)
//   - Task (one routed request with a guarded lifecycle state machine)
//   - Event (partial results, status updates and error notices)
//   - Executor / Resolver (the narrow contract every specialist satisfies)
//   - The error taxonomy shared by registry, router, relay and runner
//
// Concrete behaviour (routing, relaying, driving tasks) lives in sibling
// packages; core only carries the types they agree on.
package core
