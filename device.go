package streamrt

// Device-specific stream adapters, tensor allocators, and operator kernels
// are external collaborators - this package only declares the contracts
// it consumes from them. A nil DeviceAdapter is valid for CPU-only use;
// the CPU path never dereferences it.

// DeviceSignal is an opaque adapter-specific handle backing a GPU Signal.
// streamrt never inspects it - it is passed back to the adapter verbatim.
type DeviceSignal any

// DeviceStream is an opaque adapter-specific handle identifying a device
// command queue. It is passed to DeviceAdapter methods and to
// Task.Synchronize; streamrt never inspects it.
type DeviceStream any

// MemoryKind identifies the address space a workspace buffer must be
// usable from. CPU contexts only ever serve MemoryHost; any other kind
// requested of a CPU (or null) context is a precondition violation.
type MemoryKind int

const (
	// MemoryHost is ordinary host-addressable memory.
	MemoryHost MemoryKind = iota
	// MemoryDevice is device-addressable memory, served only through a
	// DeviceAdapter-backed GPU context.
	MemoryDevice
)

// DeviceAdapter is the contract a GPU stream implementation must satisfy.
// The CPU path of this package never requires one; every StreamContext
// method that would otherwise need it treats a nil adapter as "no device
// backing is configured" and limits itself to CPU-only behavior.
type DeviceAdapter interface {
	// InitStreamContext allocates whatever device-side state a GPU
	// StreamContext needs for the given device index.
	InitStreamContext(device int) (DeviceStream, error)
	// DeinitStreamContext releases device-side state created by
	// InitStreamContext.
	DeinitStreamContext(stream DeviceStream)
	// SynchronizeStreamContext blocks until all work submitted to stream
	// has completed.
	SynchronizeStreamContext(stream DeviceStream)
	// GetWorkspace returns a device-addressable scratch buffer of at
	// least size bytes for the given stream, following the same
	// smaller-reuses / larger-reallocates contract as the CPU workspace.
	GetWorkspace(stream DeviceStream, size int, kind MemoryKind) (unsafePointer any, err error)
	// Drain flushes pending work submitted to stream without blocking.
	Drain(stream DeviceStream)
	// EmitSignal schedules sig to become signaled once work already
	// submitted to stream completes.
	EmitSignal(stream DeviceStream, sig DeviceSignal) error
	// WaitSignal makes stream's subsequent work wait for sig.
	WaitSignal(stream DeviceStream, sig DeviceSignal) error
	// TaskSynchronize arranges for onComplete to be invoked (from any
	// goroutine) once stream has drained, so a suspended Task can be
	// resumed cooperatively instead of the caller blocking.
	TaskSynchronize(stream DeviceStream, onComplete func())
}
