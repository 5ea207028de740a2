package observable

import (
	"reflect"
	"sync"
	"testing"
)

func TestGetGoroutineIDStable(t *testing.T) {
	if getGoroutineID() != getGoroutineID() {
		t.Error("goroutine id should be stable within a goroutine")
	}

	ids := make(chan uint64, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- getGoroutineID()
		}()
	}
	wg.Wait()
	close(ids)

	a, b := <-ids, <-ids
	if a == b {
		t.Error("different goroutines should have different ids")
	}
}

func TestCollectRecordsReadsInOrderWithDuplicates(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 0, "b": 0})
	ida, _ := store.PropertyID("a")
	idb, _ := store.PropertyID("b")

	reads := rt.collect(func() {
		_ = store.Get("b")
		_ = store.Get("a")
		_ = store.Get("b")
	}, false)

	if want := []PropertyID{idb, ida, idb}; !reflect.DeepEqual(reads, want) {
		t.Errorf("expected %v, got %v", want, reads)
	}
}

func TestReadsOutsideTrackAreIgnored(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 0})

	_ = store.Get("a")

	if _, ok := rt.contexts.Load(getGoroutineID()); ok {
		t.Error("untracked read should not allocate a tracking context")
	}
}

func TestNestedTrackKeepsOuterReads(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"outer": 0, "inner": 0})

	inner := rt.NewReaction(func() {})
	outer := rt.NewReaction(func() {})

	outer.Track(func() {
		_ = store.Get("outer")
		inner.Track(func() { _ = store.Get("inner") })
	})

	ido, _ := store.PropertyID("outer")
	idi, _ := store.PropertyID("inner")
	if got := outer.Dependencies(); !reflect.DeepEqual(got, []PropertyID{ido}) {
		t.Errorf("outer: expected [outer], got %v", got)
	}
	if got := inner.Dependencies(); !reflect.DeepEqual(got, []PropertyID{idi}) {
		t.Errorf("inner: expected [inner], got %v", got)
	}
}

func TestUntrackedInsideTrack(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 0, "b": 0, "c": 0})

	r := rt.NewReaction(func() {})
	nested := rt.NewReaction(func() {})
	r.Track(func() {
		_ = store.Get("a")
		rt.Untracked(func() {
			_ = store.Get("b")
			nested.Track(func() { _ = store.Get("c") })
		})
	})

	ida, _ := store.PropertyID("a")
	idc, _ := store.PropertyID("c")
	if got := r.Dependencies(); !reflect.DeepEqual(got, []PropertyID{ida}) {
		t.Errorf("expected [a], got %v", got)
	}
	if got := nested.Dependencies(); !reflect.DeepEqual(got, []PropertyID{idc}) {
		t.Errorf("Track inside Untracked should record its own reads, got %v", got)
	}
}

func TestContextReleasedAfterTrack(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 0})
	rt.Autorun(func() { _ = store.Get("a") })
	store.Set("a", 1)

	if _, ok := rt.contexts.Load(getGoroutineID()); ok {
		t.Error("tracking context should be released when idle")
	}
}

func TestConcurrentTrackingIsPerGoroutine(t *testing.T) {
	rt := NewRuntime()
	stores := make([]*Object, 8)
	for i := range stores {
		stores[i] = rt.Wrap(map[string]any{"v": i})
	}

	reactions := make([]*Reaction, len(stores))
	var wg sync.WaitGroup
	for i := range stores {
		i := i
		reactions[i] = rt.NewReaction(func() {})
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				reactions[i].Track(func() { _ = stores[i].Get("v") })
			}
		}()
	}
	wg.Wait()

	for i, r := range reactions {
		want, _ := stores[i].PropertyID("v")
		if got := r.Dependencies(); !reflect.DeepEqual(got, []PropertyID{want}) {
			t.Errorf("reaction %d: expected [%s], got %v", i, want, got)
		}
	}
}
