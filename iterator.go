package streamrt

import (
	"context"
	"strconv"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// cacheSlot holds the most recently resolved value for one column: the
// value itself, the stream context it was produced under (the key the
// value must be recycled back into, which need not be the context the
// consumer is currently iterating with), and whether it is still holding
// a live value awaiting recycle.
type cacheSlot struct {
	value any
	ctx   *StreamContext
	full  bool
}

// Iterator walks a Dataframe row by row, memoizing each column's value for
// the current row so a derived column with several consumers of a shared
// parent only evaluates that parent once per row. An Iterator is not safe
// for concurrent use, and at most one Iterator should be active per
// (Dataframe, StreamContext) pair at a time - the recycling pool assumes
// it.
type Iterator struct {
	df         *Dataframe
	projection []int
	idx        int
	cache      []cacheSlot
	tracer     *tracez.Tracer
	hooks      *hookz.Hooks[IteratorEvent]
	metrics    *metricz.Registry
	clock      clockz.Clock
}

// NewIterator creates an iterator over df, producing only the columns
// named in projection (in that order) from each row. projection must be
// non-empty and every entry must be a valid column index.
func NewIterator(df *Dataframe, projection []int) *Iterator {
	if len(projection) == 0 {
		panic(ErrEmptyProjection)
	}
	total := df.NumColumns()
	for _, c := range projection {
		if c < 0 || c >= total {
			panic(ErrColumnIndexOutOfRange)
		}
	}
	it := &Iterator{
		df:         df,
		projection: append([]int(nil), projection...),
		cache:      make([]cacheSlot, total),
		tracer:     tracez.New(),
		hooks:      hookz.New[IteratorEvent](),
		metrics:    metricz.New(),
		clock:      clockz.RealClock,
	}
	it.metrics.Counter(IteratorRowsProduced)
	it.metrics.Counter(IteratorPoolHits)
	it.metrics.Counter(IteratorPoolMisses)
	return it
}

// Next recycles the previous row's resolved values, then resolves this
// row's projected columns into out (which must have len(out) >=
// len(projection)) under streamCtx. It reports false once every row has
// been produced; once it returns false, out is left unmodified.
func (it *Iterator) Next(out []any, streamCtx *StreamContext) (bool, error) {
	ctx, span := it.tracer.StartSpan(context.Background(), IteratorNextSpan)
	defer span.Finish()

	it.recycle(ctx)

	if it.idx >= it.df.r {
		capitan.Info(ctx, SignalIteratorEOF, FieldRow.Field(it.idx))
		return false, nil
	}

	row := it.idx
	for i, c := range it.projection {
		out[i] = it.resolve(ctx, c, row, streamCtx)
	}
	it.idx++

	it.metrics.Counter(IteratorRowsProduced).Inc()
	it.hooks.Emit(ctx, IteratorEventRowAdvanced, IteratorEvent{ //nolint:errcheck
		Row: row, Timestamp: it.clock.Now(),
	})
	return true, nil
}

// recycle pushes every column value still held in the cache back into the
// dataframe's pool, keyed by the context it was produced under, and clears
// the cache slots. Called at the start of every Next and by Free.
func (it *Iterator) recycle(ctx context.Context) {
	for c := range it.cache {
		slot := &it.cache[c]
		if !slot.full {
			continue
		}
		it.df.pool.push(slot.ctx, c, slot.value)
		it.hooks.Emit(ctx, IteratorEventRecycled, IteratorEvent{ //nolint:errcheck
			Column: c, Recycled: true, Timestamp: it.clock.Now(),
		})
		slot.value = nil
		slot.ctx = nil
		slot.full = false
	}
}

// resolve returns column c's value for row, computing it (and recursively
// its parents) if not already cached for this row. The cache makes this
// safe to call once per projected column per row even when columns share
// parents.
func (it *Iterator) resolve(ctx context.Context, c, row int, streamCtx *StreamContext) any {
	slot := &it.cache[c]
	if slot.full {
		return slot.value
	}

	_, span := it.tracer.StartSpan(ctx, ColumnResolveSpan)
	span.SetTag(ColumnResolveTagCol, strconv.Itoa(c))
	defer span.Finish()

	recycled := it.df.pool.pop(streamCtx, c)
	if recycled != nil {
		it.metrics.Counter(IteratorPoolHits).Inc()
		capitan.Info(ctx, SignalIteratorPoolHit, FieldColumn.Field(c))
	} else {
		it.metrics.Counter(IteratorPoolMisses).Inc()
		capitan.Info(ctx, SignalIteratorPoolMiss, FieldColumn.Field(c))
	}

	var v any
	if c < len(it.df.base) {
		base := &it.df.base[c]
		slotVal := recycled
		base.enumerator(c, row, 1, &slotVal, base.userCtx, streamCtx)
		v = slotVal
	} else {
		d := &it.df.derived[c-len(it.df.base)]
		// Resolve every parent into the column's own scratch buffer before
		// calling mapFn, passing the base of that buffer - not a one-past-
		// the-end slice of it - as the parent tuple.
		for i, p := range d.parents {
			d.scratch[i] = it.resolve(ctx, p, row, streamCtx)
		}
		slotVal := recycled
		d.mapFn(d.scratch, len(d.scratch), &slotVal, d.userCtx, streamCtx)
		v = slotVal
	}

	slot.value = v
	slot.ctx = streamCtx
	slot.full = true
	return v
}

// Free recycles any values still cached and releases the iterator's
// tracer and hooks. The dataframe itself outlives the iterator.
func (it *Iterator) Free() {
	it.recycle(context.Background())
	if it.tracer != nil {
		it.tracer.Close()
	}
	it.hooks.Close()
}

// Prefetch is reserved for a future asynchronous read-ahead path and is
// not implemented.
func (it *Iterator) Prefetch(_ *StreamContext) error {
	return ErrUnsupported
}

// OnRowAdvanced subscribes to row-advanced events, emitted once per row
// produced by Next.
func (it *Iterator) OnRowAdvanced(fn func(context.Context, IteratorEvent) error) error {
	_, err := it.hooks.Hook(IteratorEventRowAdvanced, fn)
	return err
}

// OnRecycled subscribes to column-recycle events, emitted once per cached
// value returned to the pool.
func (it *Iterator) OnRecycled(fn func(context.Context, IteratorEvent) error) error {
	_, err := it.hooks.Hook(IteratorEventRecycled, fn)
	return err
}
