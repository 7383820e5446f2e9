package streamrt

import (
	"context"
	"testing"
)

func TestIteratorPoolKeyedByStreamContext(t *testing.T) {
	var produced, recycledSlots int
	df := New(4, []BaseColumn{{
		Name: "x",
		Enumerator: func(_, row, _ int, slot *any, _ any, _ *StreamContext) {
			if *slot != nil {
				recycledSlots++
			} else {
				produced++
			}
			*slot = row
		},
	}})

	ctxA := New(ContextCPU)
	ctxB := New(ContextCPU)

	it := NewIterator(df, []int{0})
	out := make([]any, 1)

	// Two rows under ctxA: first call has nothing to recycle, second reuses
	// the slot pushed back by the first.
	if ok, err := it.Next(out, ctxA); !ok || err != nil {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	if ok, err := it.Next(out, ctxA); !ok || err != nil {
		t.Fatalf("Next() = %v, %v", ok, err)
	}

	// Switching to ctxB must not see ctxA's recycled value - pool slots are
	// keyed by producing context, not by column alone.
	if ok, err := it.Next(out, ctxB); !ok || err != nil {
		t.Fatalf("Next() = %v, %v", ok, err)
	}

	if produced != 2 {
		t.Errorf("expected 2 fresh productions (row 0 under ctxA, row 2 under ctxB), got %d", produced)
	}
	if recycledSlots != 1 {
		t.Errorf("expected exactly 1 recycled slot (row 1 reusing ctxA's pool), got %d", recycledSlots)
	}
}

func TestIteratorEmptyProjectionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty projection")
		}
	}()
	df := New(1, []BaseColumn{{Name: "x", Enumerator: intEnumerator([]int{1})}})
	NewIterator(df, nil)
}

func TestIteratorPrefetchUnsupported(t *testing.T) {
	df := New(1, []BaseColumn{{Name: "x", Enumerator: intEnumerator([]int{1})}})
	it := NewIterator(df, []int{0})
	if err := it.Prefetch(nil); err != ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestIteratorEmitsPoolAndRowEvents(t *testing.T) {
	df := New(2, []BaseColumn{{Name: "x", Enumerator: intEnumerator([]int{1, 2})}})
	it := NewIterator(df, []int{0})

	var advanced, recycled int
	if err := it.OnRowAdvanced(func(_ context.Context, ev IteratorEvent) error {
		advanced++
		if ev.Row != advanced-1 {
			t.Errorf("expected row %d, got %d", advanced-1, ev.Row)
		}
		return nil
	}); err != nil {
		t.Fatalf("OnRowAdvanced: %v", err)
	}
	if err := it.OnRecycled(func(_ context.Context, ev IteratorEvent) error {
		recycled++
		if !ev.Recycled {
			t.Error("expected Recycled to be true")
		}
		return nil
	}); err != nil {
		t.Fatalf("OnRecycled: %v", err)
	}

	out := make([]any, 1)
	if ok, err := it.Next(out, nil); !ok || err != nil {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	if ok, err := it.Next(out, nil); !ok || err != nil {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	it.Free()

	if advanced != 2 {
		t.Errorf("expected 2 row-advanced events, got %d", advanced)
	}
	// Two recycle events: row 0's slot is reclaimed at the start of the
	// second Next (and immediately reused, a pool hit for row 1), and row
	// 1's slot is reclaimed by Free.
	if recycled != 2 {
		t.Errorf("expected 2 recycle events, got %d", recycled)
	}

	if got := it.metrics.Counter(IteratorRowsProduced).Value(); got != 2 {
		t.Errorf("expected rows-produced counter at 2, got %d", got)
	}
	if got := it.metrics.Counter(IteratorPoolMisses).Value(); got != 1 {
		t.Errorf("expected 1 pool miss (row 0, nothing yet recycled), got %d", got)
	}
	if got := it.metrics.Counter(IteratorPoolHits).Value(); got != 1 {
		t.Errorf("expected 1 pool hit (row 1 reusing row 0's recycled slot), got %d", got)
	}
}

func TestIteratorMemoizesSharedParentPerRow(t *testing.T) {
	calls := 0
	df := New(2, []BaseColumn{{
		Name: "base",
		Enumerator: func(_, row, _ int, slot *any, _ any, _ *StreamContext) {
			calls++
			*slot = row
		},
	}})
	double := df.Map("double", []int{0}, func(parents []any, _ int, slot *any, _ any, _ *StreamContext) {
		*slot = parents[0].(int) * 2
	}, nil, nil)
	triple := df.Map("triple", []int{0}, func(parents []any, _ int, slot *any, _ any, _ *StreamContext) {
		*slot = parents[0].(int) * 3
	}, nil, nil)

	it := NewIterator(df, []int{double, triple})
	out := make([]any, 2)
	ok, err := it.Next(out, nil)
	if !ok || err != nil {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	if out[0].(int) != 0 || out[1].(int) != 0 {
		t.Fatalf("unexpected row 0 values: %v", out)
	}
	if calls != 1 {
		t.Errorf("expected base column resolved once per row despite two dependents, got %d calls", calls)
	}
}
