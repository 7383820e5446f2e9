package streamrt

import (
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Signal constants for streamrt events, following the pattern
// <component>.<event>.
const (
	SignalSchedulerTaskQueued    capitan.Signal = "scheduler.task-queued"
	SignalSchedulerWorkerSpawned capitan.Signal = "scheduler.worker-spawned"
	SignalSchedulerTaskDone      capitan.Signal = "scheduler.task-done"
	SignalSchedulerQuiescent     capitan.Signal = "scheduler.quiescent"
	SignalSchedulerWaitAny       capitan.Signal = "scheduler.wait-any"

	SignalIteratorPoolHit  capitan.Signal = "iterator.pool-hit"
	SignalIteratorPoolMiss capitan.Signal = "iterator.pool-miss"
	SignalIteratorEOF      capitan.Signal = "iterator.end-of-stream"
)

// Common capitan field keys shared across scheduler and iterator signals.
var (
	FieldName        = capitan.NewStringKey("name")
	FieldTimestamp   = capitan.NewFloat64Key("timestamp")
	FieldQueueLength = capitan.NewIntKey("queue_length")
	FieldStreamWait  = capitan.NewIntKey("stream_wait_task_count")
	FieldColumn      = capitan.NewIntKey("column")
	FieldRow         = capitan.NewIntKey("row")
)

// Metric keys for the Scheduler.
const (
	SchedulerTasksScheduled = metricz.Key("scheduler.tasks.scheduled")
	SchedulerTasksCompleted = metricz.Key("scheduler.tasks.completed")
	SchedulerWorkersSpawned = metricz.Key("scheduler.workers.spawned")
)

// Span keys for the Scheduler's drain loop.
const (
	SchedulerDrainSpan = tracez.Key("scheduler.drain")
	SchedulerTaskSpan  = tracez.Key("scheduler.task")
)

// SchedulerEventKey identifies a hookz subscription on a Scheduler.
const (
	SchedulerEventTaskScheduled hookz.Key = "scheduler.task-scheduled"
	SchedulerEventTaskDone      hookz.Key = "scheduler.task-done"
	SchedulerEventWorkerSpawned hookz.Key = "scheduler.worker-spawned"
)

// SchedulerEvent is emitted via hookz for scheduler lifecycle transitions,
// letting embedding code observe the runnable queue without touching
// scheduler internals.
type SchedulerEvent struct {
	Queued    int
	Active    bool
	Timestamp time.Time
}

// Metric keys for the Iterator / dataframe resolver.
const (
	IteratorRowsProduced = metricz.Key("iterator.rows.produced")
	IteratorPoolHits     = metricz.Key("iterator.pool.hits")
	IteratorPoolMisses   = metricz.Key("iterator.pool.misses")
)

// Span keys for the dataframe resolver.
const (
	IteratorNextSpan    = tracez.Key("iterator.next")
	ColumnResolveSpan   = tracez.Key("column.resolve")
	ColumnResolveTagCol = tracez.Tag("column.index")
)

// IteratorEventKey identifies a hookz subscription on an Iterator.
const (
	IteratorEventRowAdvanced hookz.Key = "iterator.row-advanced"
	IteratorEventRecycled    hookz.Key = "iterator.recycled"
)

// IteratorEvent is emitted via hookz as the iterator advances rows and
// recycles column values.
type IteratorEvent struct {
	Row       int
	Column    int
	Recycled  bool
	Timestamp time.Time
}
