package streamrt

import (
	"sync"
	"testing"
	"time"
)

func TestSchedulerTryDrainRunsQueuedTasks(t *testing.T) {
	ctx := New(ContextCPU)
	sched := ctx.GetScheduler()

	var order []int
	var mu sync.Mutex
	done := make(chan struct{})

	for i := 0; i < 3; i++ {
		i := i
		task := sched.NewTask(func(_ *Task, _ any) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 2 {
				close(done)
			}
		}, nil)
		sched.ScheduleTask(task)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tasks did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("expected 3 completions, got %v", order)
	}
	for i, v := range order {
		if v != i {
			t.Errorf("expected FIFO order, got %v", order)
			break
		}
	}
}

func TestSchedulerWaitAnySingleWakeup(t *testing.T) {
	ctx := New(ContextCPU)
	sched := ctx.GetScheduler()

	var waiterRan int32
	var mu sync.Mutex
	done := make(chan struct{})

	slow := sched.NewTask(func(_ *Task, _ any) {}, nil)
	fast := sched.NewTask(func(_ *Task, _ any) {}, nil)

	waiter := sched.NewTask(func(t *Task, _ any) {
		t.WaitAny([]*Task{slow, fast})
		mu.Lock()
		waiterRan++
		mu.Unlock()
		close(done)
	}, nil)

	sched.ScheduleTask(waiter)
	sched.ScheduleTask(slow)
	sched.ScheduleTask(fast)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}

	mu.Lock()
	defer mu.Unlock()
	if waiterRan != 1 {
		t.Fatalf("expected waiter to run exactly once, ran %d times", waiterRan)
	}
	if slow.notify != nil || fast.notify != nil {
		t.Fatal("expected back-edges cleared on both waited-on tasks")
	}
}

func TestSchedulerWaitIdle(t *testing.T) {
	ctx := New(ContextCPU)
	sched := ctx.GetScheduler()

	ran := make(chan struct{})
	task := sched.NewTask(func(_ *Task, _ any) { close(ran) }, nil)
	sched.ScheduleTask(task)

	<-ran
	ctx.Wait()

	sched.mu.Lock()
	active := sched.active
	sched.mu.Unlock()
	if active {
		t.Fatal("expected scheduler to report idle after Wait")
	}
}

func TestSchedulerCloseRefusesWithPendingTasks(t *testing.T) {
	ctx := New(ContextCPU)
	sched := ctx.GetScheduler()

	release := make(chan struct{})
	blocker := sched.NewTask(func(t *Task, _ any) {
		<-release
	}, nil)
	blocked := sched.NewTask(func(_ *Task, _ any) {}, nil)

	sched.mu.Lock()
	sched.addTask(blocker)
	sched.addTask(blocked)
	sched.mu.Unlock()

	if err := sched.Close(); err != ErrSchedulerBusy {
		t.Fatalf("expected ErrSchedulerBusy, got %v", err)
	}
	close(release)
}

func TestSchedulerDuplicateWaitAnyPanics(t *testing.T) {
	ctx := New(ContextCPU)
	sched := ctx.GetScheduler()

	target := sched.NewTask(func(_ *Task, _ any) {}, nil)
	waiterA := sched.NewTask(func(_ *Task, _ any) {}, nil)
	waiterB := sched.NewTask(func(_ *Task, _ any) {}, nil)

	target.notify = waiterA // simulate an existing registration

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic registering a second waiter on an already-waited-on task")
		}
	}()

	// WaitAny validates and sets back-edges before suspending, so calling it
	// directly (off the task's own goroutine) still exercises the guard.
	waiterB.WaitAny([]*Task{target})
}
