// Package streamrt provides the execution substrate for a neural-network
// training runtime: a cooperative task scheduler built around stream
// contexts, and a column-oriented dataframe with lazily derived columns and
// per-stream-context value recycling.
//
// # Overview
//
// streamrt is built around two coupled subsystems:
//
//   - Stream contexts and a cooperative scheduler: an M:1 runtime that
//     multiplexes many stackful tasks onto one worker goroutine per
//     scheduler, suspending tasks until another task or an external device
//     stream completes.
//   - A dataframe whose columns are either base (produced by a caller
//     enumerator) or derived (computed by a pure map over already-resolved
//     parent columns), walked by an iterator that memoizes per-row results
//     and recycles released values into a pool keyed by stream-context
//     identity.
//
// # Core Concepts
//
// The scheduler side is built around a small set of types:
//
//   - Signal: a one-shot device-stream synchronization token.
//   - StreamContext: an ordering domain, CPU or GPU, owning at most one
//     Scheduler and (for CPU) a growable workspace buffer.
//   - Scheduler: the per-context cooperative runtime - a FIFO runnable
//     queue, a pool of retired tasks, and a single worker goroutine.
//   - Task: a resumable unit of work with a private goroutine standing in
//     for a private stack, suspending at explicit points only.
//
// The dataframe side:
//
//   - Dataframe: an ordered set of base and derived column descriptors plus
//     a recycling pool keyed by stream-context identity.
//   - Iterator: per-traversal state - the current row, the projected output
//     columns, and per-column cache slots.
//
// # Concurrency model
//
// Scheduling is strictly cooperative: there is no preemption. Tasks
// suspend only at task_synchronize, wait_any, and their own return. Exactly
// one worker goroutine drives a scheduler's runnable queue at a time, with
// ScheduleTask and Task.Resume safe to call from any goroutine.
//
// # Non-goals
//
// streamrt does not implement preemptive scheduling, work-stealing across
// schedulers, prefetching (the API is reserved but unimplemented),
// persistence, or cross-process sharing. Device stream adapters, tensor
// allocators, CLI/training-loop code, logging policy, and operator kernels
// are external collaborators consumed only through the interfaces in
// device.go.
package streamrt
