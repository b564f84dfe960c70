// Package specialist contains the executors that do the actual work behind a
// routed task, plus the resolver that hands the coordinator a fresh executor
// per task.
//
//   - ModelExecutor streams a model.Model completion for a templated system
//     prompt and the task text.
//   - Directory maps specialist names to executor factories (model backed,
//     remote, or anything else implementing core.Executor).
//   - Travel, Research and Coding are ready-made personas with their prompts.
package specialist
