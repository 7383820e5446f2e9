package streamrt

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// StreamContext is a logical ordering domain: a CPU or GPU execution
// stream that may own at most one Scheduler and, for the CPU variant, a
// single growable workspace buffer. A nil *StreamContext is the "null
// context": GetWorkspace, Drain and GetScheduler fall back to the
// process-wide default CPU context (workspace.go); Wait, EmitSignal,
// WaitSignal and Free on it are no-ops.
type StreamContext struct {
	mu        sync.Mutex
	id        string
	kind      ContextKind
	device    int
	adapter   DeviceAdapter
	stream    DeviceStream
	scheduler *Scheduler
	ws        workspace
	clock     clockz.Clock
	closed    bool
}

// Option configures a StreamContext at construction time.
type Option func(*StreamContext)

// WithDeviceAdapter attaches the adapter backing a GPU context's signals,
// workspace, and drain/wait operations. Ignored for CPU contexts.
func WithDeviceAdapter(adapter DeviceAdapter, device int) Option {
	return func(c *StreamContext) {
		c.adapter = adapter
		c.device = device
	}
}

// WithClock overrides the clock used for this context's observability
// timestamps - tests use clockz.NewFakeClock() for determinism.
func WithClock(clock clockz.Clock) Option {
	return func(c *StreamContext) { c.clock = clock }
}

// New creates a stream context of the given kind. For ContextGPU, pass
// WithDeviceAdapter to attach the device's stream implementation; without
// one, device-only operations (EmitSignal, WaitSignal, Drain's flush step)
// are no-ops, matching "CPU path must function without this adapter" - a
// GPU context simply degrades to doing nothing on those calls rather than
// panicking, since the adapter is an external collaborator this package
// does not require.
func New(kind ContextKind, opts ...Option) *StreamContext {
	c := &StreamContext{
		id:    uuid.NewString(),
		kind:  kind,
		clock: clockz.RealClock,
	}
	for _, opt := range opts {
		opt(c)
	}
	if kind == ContextGPU && c.adapter != nil {
		stream, err := c.adapter.InitStreamContext(c.device)
		if err == nil {
			c.stream = stream
		}
	}
	return c
}

// GetWorkspace returns a pointer to a scratch buffer of at least size
// bytes, owned by ctx (or the default context, if ctx is nil). Calls with
// size no larger than the current buffer return the same backing buffer;
// a larger size releases the old buffer and allocates a fresh aligned one.
func GetWorkspace(ctx *StreamContext, size int, kind MemoryKind) []byte {
	if ctx == nil {
		ctx = defaultContext()
	}
	if ctx.kind == ContextGPU && ctx.adapter != nil {
		ptr, err := ctx.adapter.GetWorkspace(ctx.stream, size, kind)
		if err == nil {
			if b, ok := ptr.([]byte); ok {
				return b
			}
		}
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.ws.get(size, kind)
}

// Drain releases the workspace buffer and, for a device context with an
// adapter, flushes pending work on the underlying stream. A nil context
// drains the default context.
func (c *StreamContext) Drain() {
	if c == nil {
		c = defaultContext()
	}
	c.mu.Lock()
	c.ws.release()
	stream, adapter := c.stream, c.adapter
	c.mu.Unlock()
	if adapter != nil {
		adapter.Drain(stream)
	}
}

// Wait blocks until all work submitted to this context has completed. If a
// Scheduler is attached, it first waits for the scheduler to go idle
// (active == false); then, for a device context, it synchronizes the
// underlying stream. A nil context is a no-op.
func (c *StreamContext) Wait() {
	if c == nil {
		return
	}
	c.mu.Lock()
	sched := c.scheduler
	adapter, stream := c.adapter, c.stream
	c.mu.Unlock()

	if sched != nil {
		sched.waitIdle()
	}
	if c.kind == ContextGPU && adapter != nil {
		adapter.SynchronizeStreamContext(stream)
	}
}

// EmitSignal emits sig on this context's stream. CPU contexts (and GPU
// contexts with no adapter) treat this as a reserved no-op.
func (c *StreamContext) EmitSignal(sig *Signal) {
	if c == nil || c.kind != ContextGPU || c.adapter == nil || sig == nil {
		return
	}
	_ = c.adapter.EmitSignal(c.stream, sig.Handle())
}

// WaitSignal makes this context's subsequent work wait on sig. CPU
// contexts (and GPU contexts with no adapter) treat this as a reserved
// no-op.
func (c *StreamContext) WaitSignal(sig *Signal) {
	if c == nil || c.kind != ContextGPU || c.adapter == nil || sig == nil {
		return
	}
	_ = c.adapter.WaitSignal(c.stream, sig.Handle())
}

// GetScheduler returns the scheduler attached to this context, lazily
// constructing one on first call. At most one scheduler is ever created
// per context - it lives for the context's lifetime.
func (c *StreamContext) GetScheduler() *Scheduler {
	if c == nil {
		c = defaultContext()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduler == nil {
		c.scheduler = newScheduler(c)
	}
	return c.scheduler
}

// Free releases the workspace and any device resources owned by this
// context. The scheduler, if any, is left to the caller to Close
// explicitly - its worker goroutine may still be draining suspended tasks.
func (c *StreamContext) Free() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.ws.release()
	if c.kind == ContextGPU && c.adapter != nil {
		c.adapter.DeinitStreamContext(c.stream)
	}
	capitan.Info(context.Background(), SignalSchedulerQuiescent,
		FieldName.Field(c.id),
		FieldTimestamp.Field(float64(c.clock.Now().Unix())),
	)
}
