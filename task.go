package streamrt

// TaskFunc is the user function a Task runs. It receives the Task itself
// (so it can call WaitAny or Synchronize to suspend) and the userdata
// pointer passed to Scheduler.NewTask.
type TaskFunc func(t *Task, userdata any)

// Task is a resumable unit of work: a private goroutine standing in for a
// private stack, a user function, a done flag, and the notify back-edge
// used by WaitAny. A task is, at all times, in exactly one of: the
// scheduler's runnable queue, suspended off-queue, the scheduler's retired
// pool, or executing.
type Task struct {
	sched    *Scheduler
	fn       TaskFunc
	userdata any
	done     bool

	prev, next *Task

	// notify is non-nil only when some other task has registered itself
	// as a waiter on this task via WaitAny - the back-edge that task-done
	// clears and re-enqueues.
	notify *Task
	// others is the dual: when this task is itself the WaitAny caller,
	// the set of tasks it registered notify on.
	others []*Task

	p       pivot
	started bool
}

func newTask(sched *Scheduler, fn TaskFunc, userdata any) *Task {
	return &Task{
		sched:    sched,
		fn:       fn,
		userdata: userdata,
		p:        newPivot(),
	}
}

// reset reinitializes a retired Task for reuse. The goroutine that will
// back the reused task is spawned lazily on the next resume rather than
// kept alive across reuse, since an exited Go goroutine cannot be
// revived.
func (t *Task) reset(fn TaskFunc, userdata any) {
	t.fn = fn
	t.userdata = userdata
	t.done = false
	t.prev, t.next = nil, nil
	t.notify = nil
	t.others = nil
	t.started = false
	t.p = newPivot()
}

// trampoline is the task goroutine's body: it waits for the first resume,
// runs the user function to completion, marks itself done, and yields one
// final time so the driver can run the task-done protocol.
func (t *Task) trampoline() {
	t.p.awaitResume()
	t.fn(t, t.userdata)
	t.done = true
	t.p.yield()
}

// resume is the shared context-switch primitive: spawn the task's
// goroutine on first use, then hand it control and block until it
// suspends or completes.
func (t *Task) resume() {
	if !t.started {
		t.started = true
		go t.trampoline()
	}
	t.p.resume()
}

// Resume is the public entry point for foreign code (for example, a
// device-completion callback) to resume a specific suspended task directly
// on the caller's goroutine, bypassing the scheduler's runnable queue. The
// caller must ensure the task is actually suspended and not concurrently
// being resumed by the scheduler's own worker.
func (t *Task) Resume() {
	t.resume()
	if t.done {
		t.sched.mu.Lock()
		t.sched.taskDone(t)
		t.sched.mu.Unlock()
	}
}

// Done reports whether the task's function has returned.
func (t *Task) Done() bool { return t.done }

// WaitAny suspends the calling task until any one of others completes.
// Exactly one of others waking the waiter is guaranteed: task-done clears
// the notify back-edge on every other surviving task in others as soon as
// the first one completes, so no dangling back-edge and no double wakeup
// are possible. WaitAny must be called from inside the task's own
// TaskFunc - it suspends by yielding through the task's own pivot.
func (t *Task) WaitAny(others []*Task) {
	for _, o := range others {
		if o.notify != nil {
			panic(ErrDuplicateNotifier)
		}
	}
	for _, o := range others {
		o.notify = t
	}
	t.others = others

	t.sched.recordWaitAny(t, others)
	t.p.suspend()
}

// Synchronize cooperatively suspends the calling task until stream has
// drained. CPU streams (stream == nil) are a no-op. For a device stream,
// the scheduler counts this task in stream_wait_task_count for the
// duration of the wait, so try-drain does not mistake a stream-suspended
// task for true idleness; the device adapter is expected to call t.Resume
// from its own completion callback once the stream drains.
func (t *Task) Synchronize(stream DeviceStream) {
	if stream == nil || t.sched.ctx.adapter == nil {
		return
	}
	t.sched.mu.Lock()
	t.sched.streamWaitTaskCount++
	t.sched.mu.Unlock()

	t.sched.ctx.adapter.TaskSynchronize(stream, func() {
		t.Resume()
	})

	t.p.suspend()

	t.sched.mu.Lock()
	t.sched.streamWaitTaskCount--
	// A blockingWorker may be parked on workerWake because the queue was
	// empty while this count was still positive; wake it so it re-checks
	// whether the scheduler has gone idle. A no-op if no worker is parked.
	t.sched.workerWake.Signal()
	t.sched.mu.Unlock()
}
