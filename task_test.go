package streamrt

import (
	"testing"
	"time"
)

func TestTaskPreservesLocalStateAcrossSuspension(t *testing.T) {
	ctx := New(ContextCPU)
	sched := ctx.GetScheduler()

	results := make(chan []int, 1)
	task := sched.NewTask(func(tt *Task, _ any) {
		// Local variables on the task's own goroutine stack must survive a
		// suspend/resume round trip unscathed - the point of giving each
		// task a real goroutine instead of a single shared stack.
		acc := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			acc = append(acc, i)
			if i < 2 {
				other := tt.sched.NewTask(func(_ *Task, _ any) {}, nil)
				tt.sched.ScheduleTask(other)
				tt.WaitAny([]*Task{other})
			}
		}
		results <- acc
	}, nil)
	sched.ScheduleTask(task)

	select {
	case got := <-results:
		want := []int{0, 1, 2}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, got)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("task never completed")
	}
}

func TestTaskResetReusesRetiredTask(t *testing.T) {
	ctx := New(ContextCPU)
	sched := ctx.GetScheduler()

	first := sched.NewTask(func(_ *Task, _ any) {}, nil)
	done1 := make(chan struct{})
	sched.ScheduleTask(first)
	go func() {
		for !first.Done() {
			time.Sleep(time.Millisecond)
		}
		close(done1)
	}()
	<-done1

	sched.mu.Lock()
	n := len(sched.emptyTasks)
	sched.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected 1 retired task available for reuse, got %d", n)
	}

	ran := make(chan struct{})
	second := sched.NewTask(func(_ *Task, _ any) { close(ran) }, nil)
	if second != first {
		t.Fatal("expected NewTask to reuse the retired task object")
	}
	sched.ScheduleTask(second)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("reused task never ran")
	}
}

func TestTaskSynchronizeNoopForNilStream(t *testing.T) {
	ctx := New(ContextCPU)
	sched := ctx.GetScheduler()
	done := make(chan struct{})
	task := sched.NewTask(func(tt *Task, _ any) {
		tt.Synchronize(nil)
		close(done)
	}, nil)
	sched.ScheduleTask(task)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Synchronize(nil) should be a no-op and let the task complete")
	}
}

// TestTaskSynchronizeDeviceStreamResumesAndGoesIdle exercises a task that
// suspends on a device stream whose completion callback fires from an
// adapter-owned goroutine (never the task's own), then asserts the
// scheduler actually returns to idle afterward. A blockingWorker parked
// waiting for this task's stream to drain must be woken once
// stream_wait_task_count drops back to zero - otherwise it never
// re-checks its exit condition and StreamContext.Wait hangs forever.
func TestTaskSynchronizeDeviceStreamResumesAndGoesIdle(t *testing.T) {
	adapter := &fakeAdapter{}
	ctx := New(ContextGPU, WithDeviceAdapter(adapter, 0))
	sched := ctx.GetScheduler()

	done := make(chan struct{})
	task := sched.NewTask(func(tt *Task, _ any) {
		tt.Synchronize("device-stream")
		close(done)
	}, nil)
	sched.ScheduleTask(task)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never resumed after the device completion callback fired")
	}

	waited := make(chan struct{})
	go func() {
		ctx.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("scheduler never returned to idle once stream_wait_task_count reached zero")
	}

	sched.mu.Lock()
	active := sched.active
	sched.mu.Unlock()
	if active {
		t.Fatal("expected scheduler to report idle")
	}
}
