package streamrt

import "sync"

// pool is the per-(stream-context, column) recycling arena: a LIFO stack
// of released column values, keyed by the identity of the stream context a
// value was produced under - not the one it might be consumed under.
// Identity equality is sufficient (no hashing of content), so
// *StreamContext itself (a valid Go map key, and nil is a valid key
// meaning "default/CPU context") is the key.
//
// No lock guards a single (ctx, column) slot's contents: a dataframe's
// recycling pool is meant for a single iterator at a time per
// (stream_ctx, column) slot, and concurrent iterators sharing a dataframe
// must coordinate externally. mu guards only the top-level map's own
// structure, since two iterators touching different stream contexts for
// the first time would otherwise race on Go's map internals even though
// they never race on a single slot.
type pool struct {
	mu    sync.Mutex
	byCtx map[*StreamContext]map[int][]any
}

func newPool() pool {
	return newPoolWithCapacity(0)
}

// newPoolWithCapacity pre-sizes the top-level map for n distinct
// stream-context identities, avoiding rehashing when a caller already
// knows roughly how many contexts will feed a dataframe's columns.
func newPoolWithCapacity(n int) pool {
	return pool{byCtx: make(map[*StreamContext]map[int][]any, n)}
}

func (p *pool) push(ctx *StreamContext, column int, v any) {
	p.mu.Lock()
	cols, ok := p.byCtx[ctx]
	if !ok {
		cols = make(map[int][]any)
		p.byCtx[ctx] = cols
	}
	cols[column] = append(cols[column], v)
	p.mu.Unlock()
}

// pop returns a recycled value for (ctx, column), or nil if the stack is
// empty.
func (p *pool) pop(ctx *StreamContext, column int) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	cols, ok := p.byCtx[ctx]
	if !ok {
		return nil
	}
	stack := cols[column]
	if len(stack) == 0 {
		return nil
	}
	v := stack[len(stack)-1]
	cols[column] = stack[:len(stack)-1]
	return v
}

// drain removes and returns every value currently sitting in the pool for
// a given column, across all stream-context identities - used by
// Dataframe.Free to run each column's deinit exactly once per surviving
// value.
func (p *pool) drain(column int) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, cols := range p.byCtx {
		out = append(out, cols[column]...)
		delete(cols, column)
	}
	return out
}
