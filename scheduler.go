package streamrt

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Scheduler is the per-context cooperative runtime: a FIFO runnable queue
// of Tasks, a pool of retired Task objects available for reuse, and at
// most one worker goroutine draining the queue at a time. Exactly one
// worker drains a given Scheduler; schedule_task and Task.Resume are safe
// to call from any goroutine, but the worker itself is single-threaded by
// construction - there is no preemption and no work-stealing.
type Scheduler struct {
	ctx *StreamContext

	mu     sync.Mutex
	head   *Task
	tail   *Task
	active bool

	streamWaitTaskCount int
	emptyTasks          []*Task

	workerWake *sync.Cond // signaled to wake a blocked worker goroutine
	idleCond   *sync.Cond // broadcast when active drops to false

	clock   clockz.Clock
	hooks   *hookz.Hooks[SchedulerEvent]
	metrics *metricz.Registry
	tracer  *tracez.Tracer
}

func newScheduler(ctx *StreamContext) *Scheduler {
	s := &Scheduler{
		ctx:     ctx,
		clock:   ctx.clock,
		hooks:   hookz.New[SchedulerEvent](),
		metrics: metricz.New(),
		tracer:  tracez.New(),
	}
	s.workerWake = sync.NewCond(&s.mu)
	s.idleCond = sync.NewCond(&s.mu)
	s.metrics.Counter(SchedulerTasksScheduled)
	s.metrics.Counter(SchedulerTasksCompleted)
	s.metrics.Counter(SchedulerWorkersSpawned)
	return s
}

// NewTask creates a task bound to this scheduler, reusing a retired Task
// object from the empty-task pool when one is available (reset with a fresh
// pivot) rather than allocating a new Task.
func (s *Scheduler) NewTask(fn TaskFunc, userdata any) *Task {
	s.mu.Lock()
	if n := len(s.emptyTasks); n > 0 {
		t := s.emptyTasks[n-1]
		s.emptyTasks = s.emptyTasks[:n-1]
		s.mu.Unlock()
		t.reset(fn, userdata)
		return t
	}
	s.mu.Unlock()
	return newTask(s, fn, userdata)
}

// addTask appends t to the tail of the FIFO runnable queue. Callers must
// hold s.mu.
func (s *Scheduler) addTask(t *Task) {
	t.prev, t.next = s.tail, nil
	if s.tail != nil {
		s.tail.next = t
	} else {
		s.head = t
	}
	s.tail = t
}

// popHead removes and returns the task at the front of the runnable queue,
// or nil if empty. Callers must hold s.mu.
func (s *Scheduler) popHead() *Task {
	t := s.head
	if t == nil {
		return nil
	}
	s.head = t.next
	if s.head != nil {
		s.head.prev = nil
	} else {
		s.tail = nil
	}
	t.prev, t.next = nil, nil
	return t
}

func (s *Scheduler) queueLen() int {
	n := 0
	for t := s.head; t != nil; t = t.next {
		n++
	}
	return n
}

// ScheduleTask appends task to the runnable queue and, if no worker is
// currently draining this scheduler, drives the queue inline on the
// calling goroutine (try-drain) until it either empties, blocks on
// external stream completions, or a worker goroutine is spawned to take
// over.
func (s *Scheduler) ScheduleTask(t *Task) {
	s.mu.Lock()
	s.addTask(t)
	qlen := s.queueLen()
	// A blockingWorker may currently be parked in Wait() because the queue
	// was empty while tasks remained stream-suspended; signal it so it
	// re-checks the loop condition and picks up the task just added. A
	// no-op if no worker is parked.
	s.workerWake.Signal()
	s.mu.Unlock()

	s.metrics.Counter(SchedulerTasksScheduled).Inc()
	s.hooks.Emit(context.Background(), SchedulerEventTaskScheduled, SchedulerEvent{ //nolint:errcheck
		Queued: qlen, Active: true, Timestamp: s.clock.Now(),
	})
	capitan.Info(context.Background(), SignalSchedulerTaskQueued,
		FieldQueueLength.Field(qlen),
		FieldTimestamp.Field(float64(s.clock.Now().Unix())),
	)

	s.tryDrain()
}

// tryDrain is the non-blocking entry point, run on the submitting
// goroutine. It only drives the queue while doing so would not block -
// when the queue is empty but tasks remain suspended on external stream
// completions, it hands off to a spawned worker goroutine instead of
// blocking the submitter.
func (s *Scheduler) tryDrain() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true

	ctx, span := s.tracer.StartSpan(context.Background(), SchedulerDrainSpan)
	defer span.Finish()

	for {
		if s.head == nil && s.streamWaitTaskCount == 0 {
			s.active = false
			s.idleCond.Broadcast()
			s.mu.Unlock()
			capitan.Info(ctx, SignalSchedulerQuiescent,
				FieldTimestamp.Field(float64(s.clock.Now().Unix())),
			)
			return
		}
		if s.head == nil {
			s.metrics.Counter(SchedulerWorkersSpawned).Inc()
			capitan.Info(ctx, SignalSchedulerWorkerSpawned,
				FieldStreamWait.Field(s.streamWaitTaskCount),
			)
			s.hooks.Emit(ctx, SchedulerEventWorkerSpawned, SchedulerEvent{ //nolint:errcheck
				Active: true, Timestamp: s.clock.Now(),
			})
			go s.blockingWorker()
			s.mu.Unlock()
			return
		}
		task := s.popHead()
		s.mu.Unlock()
		s.runTask(ctx, task)
		s.mu.Lock()
	}
}

// blockingWorker is the spawned worker goroutine: it runs the same drain
// loop as tryDrain, but blocks on workerWake instead of spawning further
// workers when only stream-suspended tasks remain.
func (s *Scheduler) blockingWorker() {
	s.mu.Lock()
	ctx, span := s.tracer.StartSpan(context.Background(), SchedulerDrainSpan)
	defer span.Finish()

	for {
		if s.head == nil && s.streamWaitTaskCount == 0 {
			s.active = false
			s.idleCond.Broadcast()
			s.mu.Unlock()
			capitan.Info(ctx, SignalSchedulerQuiescent,
				FieldTimestamp.Field(float64(s.clock.Now().Unix())),
			)
			return
		}
		if s.head == nil {
			s.workerWake.Wait()
			continue
		}
		task := s.popHead()
		s.mu.Unlock()
		s.runTask(ctx, task)
		s.mu.Lock()
	}
}

// runTask performs the context switch into task and, on return, runs the
// task-done protocol if it completed. Must be called without s.mu held;
// it reacquires the lock only for the task-done bookkeeping.
func (s *Scheduler) runTask(ctx context.Context, t *Task) {
	_, span := s.tracer.StartSpan(ctx, SchedulerTaskSpan)
	t.resume()
	span.Finish()

	if t.done {
		s.mu.Lock()
		s.taskDone(t)
		s.mu.Unlock()
	}
}

// taskDone runs the task-done protocol: if some other task
// registered as a WaitAny waiter on t, it is re-enqueued and the notify
// back-edge on every other task in its wait set is cleared so exactly one
// wakeup occurs per WaitAny call. t is then retired to the empty-task pool
// for reuse. Callers must hold s.mu.
func (s *Scheduler) taskDone(t *Task) {
	s.metrics.Counter(SchedulerTasksCompleted).Inc()
	capitan.Info(context.Background(), SignalSchedulerTaskDone,
		FieldTimestamp.Field(float64(s.clock.Now().Unix())),
	)
	s.hooks.Emit(context.Background(), SchedulerEventTaskDone, SchedulerEvent{ //nolint:errcheck
		Timestamp: s.clock.Now(),
	})

	if t.notify != nil {
		w := t.notify
		t.notify = nil
		s.addTask(w)

		others := w.others
		w.others = nil
		for _, o := range others {
			if o == t {
				continue
			}
			if o.notify != w {
				panic(ErrDuplicateNotifier)
			}
			o.notify = nil
		}
	}
	s.emptyTasks = append(s.emptyTasks, t)
}

// recordWaitAny emits observability for a WaitAny call; it holds no
// invariant-bearing state.
func (s *Scheduler) recordWaitAny(waiter *Task, others []*Task) {
	capitan.Info(context.Background(), SignalSchedulerWaitAny,
		FieldQueueLength.Field(len(others)),
		FieldTimestamp.Field(float64(s.clock.Now().Unix())),
	)
}

// waitIdle blocks the calling goroutine until the scheduler is not active
// (the runnable queue is empty and no task is suspended on an external
// stream). Used by StreamContext.Wait.
func (s *Scheduler) waitIdle() {
	s.mu.Lock()
	for s.active {
		s.idleCond.Wait()
	}
	s.mu.Unlock()
}

// Close releases the scheduler's retained Task pool. It returns
// ErrSchedulerBusy - without discarding any state - if the runnable queue
// is not empty, since closing a scheduler with pending work is a caller
// bug this library reports rather than aborts on.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.head != nil {
		s.mu.Unlock()
		return ErrSchedulerBusy
	}
	s.emptyTasks = nil
	s.mu.Unlock()
	if s.tracer != nil {
		s.tracer.Close()
	}
	s.hooks.Close()
	return nil
}

// OnTaskScheduled subscribes to scheduler task-scheduled events.
func (s *Scheduler) OnTaskScheduled(fn func(context.Context, SchedulerEvent) error) error {
	_, err := s.hooks.Hook(SchedulerEventTaskScheduled, fn)
	return err
}

// OnTaskDone subscribes to scheduler task-completion events.
func (s *Scheduler) OnTaskDone(fn func(context.Context, SchedulerEvent) error) error {
	_, err := s.hooks.Hook(SchedulerEventTaskDone, fn)
	return err
}
