package streamrt

// A cooperative scheduler needs a stackful coroutine: a unit of work that
// can suspend mid-function and resume exactly where it left off, with its
// local variables intact. Raw machine-context switches (ucontext's
// swapcontext) are one way to get that; Go has no portable equivalent
// without per-ISA assembly, so this package gets the same discipline from
// the language's own primitive for it: one goroutine per task, standing in
// for its private stack, handed off to by an unbuffered channel pair.
//
// pivot is that handoff. resume sends on in and blocks for a reply on out;
// the task goroutine blocks on in and replies on out when it suspends or
// returns. Because both channels are unbuffered, exactly one side runs at
// any instant - caller xor callee, never both - without ever touching two
// goroutines' stacks concurrently.
type pivot struct {
	in  chan struct{}
	out chan struct{}
}

func newPivot() pivot {
	return pivot{in: make(chan struct{}), out: make(chan struct{})}
}

// resume hands control to the task's goroutine and blocks until it yields
// back (by suspending or returning). It is the moment-of-swap primitive
// shared by the scheduler's drive loop and Task.Resume.
func (p pivot) resume() {
	p.in <- struct{}{}
	<-p.out
}

// suspend is called from inside the task's own goroutine to yield control
// back to whichever goroutine called resume, and blocks until resumed
// again.
func (p pivot) suspend() {
	p.out <- struct{}{}
	<-p.in
}

// awaitResume is the task goroutine's first wait, before it has run at all.
func (p pivot) awaitResume() {
	<-p.in
}

// yield is the entry trampoline's final handoff after the task function
// returns, reported as done to whoever is holding the pivot.
func (p pivot) yield() {
	p.out <- struct{}{}
}
