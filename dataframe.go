package streamrt

import "sync"

// Enumerator produces the value for a base column at a given row. slot is
// an in/out argument: on entry it holds a recycled value (or nil); on
// return it must hold the produced value. batch is always 1 today - it is
// carried for interface parity with a future batched enumerator, not used
// by anything in this package.
type Enumerator func(column, row, batch int, slot *any, userCtx any, streamCtx *StreamContext)

// MapFunc computes a derived column's value from its already-resolved
// parent values. parents has exactly n entries, in the same order as the
// parent column indices the column was declared with. slot follows the
// same in/out reuse protocol as Enumerator.
type MapFunc func(parents []any, n int, slot *any, userCtx any, streamCtx *StreamContext)

// Deinit releases every resource a column value owns. May be nil if values
// never need releasing.
type Deinit func(value any)

type baseColumn struct {
	name       string
	enumerator Enumerator
	userCtx    any
	deinit     Deinit
}

type derivedColumn struct {
	name    string
	parents []int
	mapFn   MapFunc
	userCtx any
	deinit  Deinit
	scratch []any // reused across rows; sized to len(parents)
}

// BaseColumn describes a base column at construction time.
type BaseColumn struct {
	Name       string
	Enumerator Enumerator
	UserCtx    any
	Deinit     Deinit
}

// Dataframe is a row-indexed, column-addressable dataset. Columns are
// either base (produced by an Enumerator) or derived (computed by a
// MapFunc over a tuple of other columns); the effective column index space
// is [0, B+D), base columns first. A derived column may only depend on
// columns with a strictly lower index, so construction order alone makes
// the dependency graph a DAG.
type Dataframe struct {
	mu      sync.Mutex
	r       int
	base    []baseColumn
	derived []derivedColumn
	pool    pool
}

// DataframeOption configures a Dataframe at construction time.
type DataframeOption func(*Dataframe)

// WithPoolCapacity pre-sizes the recycling pool's top-level map for n
// distinct stream-context identities, avoiding rehashing when a caller
// already knows roughly how many contexts will feed this dataframe's
// columns (for example, one per worker in a fixed-size pool of training
// workers).
func WithPoolCapacity(n int) DataframeOption {
	return func(df *Dataframe) { df.pool = newPoolWithCapacity(n) }
}

// New creates a dataframe of r rows from the given base column
// descriptors. At least one base column is required.
func New(r int, base []BaseColumn, opts ...DataframeOption) *Dataframe {
	if len(base) == 0 {
		panic(ErrNoBaseColumns)
	}
	cols := make([]baseColumn, len(base))
	for i, b := range base {
		cols[i] = baseColumn{name: b.Name, enumerator: b.Enumerator, userCtx: b.UserCtx, deinit: b.Deinit}
	}
	df := &Dataframe{
		r:    r,
		base: cols,
		pool: newPool(),
	}
	for _, opt := range opts {
		opt(df)
	}
	return df
}

// Rows reports the dataframe's fixed row count.
func (df *Dataframe) Rows() int { return df.r }

// NumColumns reports B+D, the current size of the effective column index
// space.
func (df *Dataframe) NumColumns() int {
	df.mu.Lock()
	defer df.mu.Unlock()
	return len(df.base) + len(df.derived)
}

// Map appends a derived column computed by mapFn over the columns named in
// parents, and returns its new index (B + D, before this call). Every
// entry of parents must be a valid index into the current column space -
// enforced here, not just by convention, so a derived column can never
// reference a column declared after it.
func (df *Dataframe) Map(name string, parents []int, mapFn MapFunc, userCtx any, deinit Deinit) int {
	df.mu.Lock()
	defer df.mu.Unlock()

	total := len(df.base) + len(df.derived)
	for _, p := range parents {
		if p < 0 || p >= total {
			panic(ErrColumnIndexOutOfRange)
		}
	}

	idx := total
	df.derived = append(df.derived, derivedColumn{
		name:    name,
		parents: append([]int(nil), parents...),
		mapFn:   mapFn,
		userCtx: userCtx,
		deinit:  deinit,
		scratch: make([]any, len(parents)),
	})
	return idx
}

// Free runs each column's Deinit (if non-nil) over every value currently
// sitting in the recycling pool, then releases the pool and the derived
// column list. Iterators must be freed first - this is not enforced.
func (df *Dataframe) Free() {
	df.mu.Lock()
	defer df.mu.Unlock()

	total := len(df.base) + len(df.derived)
	for c := 0; c < total; c++ {
		deinit := df.deinitFor(c)
		if deinit == nil {
			continue
		}
		for _, v := range df.pool.drain(c) {
			deinit(v)
		}
	}
	df.pool = newPool()
	df.derived = nil
}

func (df *Dataframe) deinitFor(c int) Deinit {
	if c < len(df.base) {
		return df.base[c].deinit
	}
	return df.derived[c-len(df.base)].deinit
}
