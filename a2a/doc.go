// Package a2a exposes a coordinator over an Agent-to-Agent style HTTP surface
// and lets a coordinator forward tasks to remote specialists speaking the same
// protocol.
//
// Server side:
//   - GET /.well-known/agent.json returns the AgentCard (one skill per specialist)
//   - POST / accepts JSON-RPC 2.0: "message/stream" answers with a
//     text/event-stream of status-update and artifact-update results,
//     "tasks/cancel" cancels an in-flight task
//
// Client side, Client speaks the same protocol and RemoteExecutor adapts a
// remote endpoint to core.Executor so remote specialists are routed like
// local ones.
package a2a
