package streamrt

import "errors"

// Precondition violations. These mark programmer errors - a caller handed
// the runtime a value outside its documented contract. They are raised as
// panics (see the doc comment on each API), not returned, matching the
// "hard abort, not recoverable" taxonomy this runtime follows for
// programmer errors versus data-dependent failures.
var (
	ErrColumnIndexOutOfRange = errors.New("streamrt: column index out of range")
	ErrEmptyProjection       = errors.New("streamrt: iterator projection must be non-empty")
	ErrNoBaseColumns         = errors.New("streamrt: dataframe requires at least one base column")
	ErrDuplicateNotifier     = errors.New("streamrt: task already has a notifier registered")
	ErrUnsupportedMemoryKind = errors.New("streamrt: unsupported memory kind for workspace")
)

// ErrUnsupported is returned by reserved-but-unimplemented operations such
// as Iterator.Prefetch, so callers can probe capability instead of having
// it silently no-op.
var ErrUnsupported = errors.New("streamrt: unsupported")

// ErrSchedulerBusy is returned by Scheduler.Close when the runnable queue is
// not empty at close time - a caller bug (closing a scheduler that still
// has scheduled work), but one this library reports rather than aborts the
// host process over, since Close runs at shutdown where callers expect an
// error return rather than a crash.
var ErrSchedulerBusy = errors.New("streamrt: scheduler closed with tasks still runnable")
