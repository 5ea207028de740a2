package observable

import (
	"errors"
	"reflect"
	"testing"
)

// counter counts change callback invocations.
type counter struct {
	calls int
}

func (c *counter) inc() { c.calls++ }

func TestAutorunRunsImmediatelyAndOnWrite(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"count": 0})

	var log []any
	rt.Autorun(func() {
		log = append(log, store.Get("count"))
	})

	if !reflect.DeepEqual(log, []any{0}) {
		t.Fatalf("expected initial run with 0, got %v", log)
	}

	if err := store.Set("count", 5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !reflect.DeepEqual(log, []any{0, 5}) {
		t.Errorf("expected exactly one re-run with 5, got %v", log)
	}
}

func TestReactionCallbackOncePerWrite(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 0, "b": 0})

	c := &counter{}
	r := rt.NewReaction(c.inc)
	r.Track(func() {
		_ = store.Get("a")
		_ = store.Get("b")
	})

	if c.calls != 0 {
		t.Fatalf("Track must not invoke the callback, got %d calls", c.calls)
	}

	store.Set("a", 1)
	store.Set("b", 2)

	if c.calls != 2 {
		t.Errorf("expected 2 calls (one per write), got %d", c.calls)
	}
}

func TestNoSpuriousTriggers(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"x": 0, "y": 0})

	c := &counter{}
	r := rt.NewReaction(c.inc)
	r.Track(func() { _ = store.Get("y") })

	store.Set("x", 99)

	if c.calls != 0 {
		t.Errorf("write to unread field triggered %d calls", c.calls)
	}
}

func TestWriteWithoutSubscribersIsNoOp(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"x": 0})

	if err := store.Set("x", 99); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := store.Peek("x"); got != 99 {
		t.Errorf("expected 99, got %v", got)
	}
}

func TestDuplicateReadsRegisterOnce(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 0})

	c := &counter{}
	r := rt.NewReaction(c.inc)
	r.Track(func() {
		_ = store.Get("a")
		_ = store.Get("a")
		_ = store.Get("a")
	})

	id, _ := store.PropertyID("a")
	if subs := rt.Subscribers(id); len(subs) != 1 {
		t.Fatalf("expected 1 subscriber, got %d", len(subs))
	}

	store.Set("a", 1)
	if c.calls != 1 {
		t.Errorf("expected 1 call, got %d", c.calls)
	}
}

func TestNotificationOrder(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"count": 0})

	var order []string
	first := true
	rt.Autorun(func() {
		_ = store.Get("count")
		if !first {
			order = append(order, "R1")
		}
	})
	rt.Autorun(func() {
		_ = store.Get("count")
		if !first {
			order = append(order, "R2")
		}
	})
	first = false

	store.Set("count", 1)

	if !reflect.DeepEqual(order, []string{"R1", "R2"}) {
		t.Errorf("expected [R1 R2], got %v", order)
	}
}

func TestSubscriptionsGrowMonotonically(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 0, "b": 0})

	c := &counter{}
	r := rt.NewReaction(c.inc)
	r.Track(func() { _ = store.Get("a") })
	r.Track(func() { _ = store.Get("b") })

	ida, _ := store.PropertyID("a")
	idb, _ := store.PropertyID("b")
	if got := r.Dependencies(); !reflect.DeepEqual(got, []PropertyID{ida, idb}) {
		t.Fatalf("expected [a b] dependencies, got %v", got)
	}

	// a is no longer read but the stale edge stays.
	store.Set("a", 1)
	if c.calls != 1 {
		t.Errorf("stale subscription should still fire, got %d calls", c.calls)
	}
}

func TestAutorunDependenciesGrowAcrossRuns(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"flag": false, "x": 0, "y": 0})

	runs := 0
	rt.Autorun(func() {
		runs++
		if store.Get("flag") == true {
			_ = store.Get("y")
		} else {
			_ = store.Get("x")
		}
	})

	store.Set("flag", true) // run 2 reads y
	store.Set("flag", false)
	store.Set("y", 1) // still subscribed from run 2
	store.Set("x", 1)

	if runs != 5 {
		t.Errorf("expected 5 runs, got %d", runs)
	}
}

func TestWithPruningDropsStaleEdges(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 0, "b": 0})

	c := &counter{}
	r := rt.NewReaction(c.inc, WithPruning())
	r.Track(func() { _ = store.Get("a") })
	r.Track(func() { _ = store.Get("b") })

	idb, _ := store.PropertyID("b")
	if got := r.Dependencies(); !reflect.DeepEqual(got, []PropertyID{idb}) {
		t.Fatalf("expected only b, got %v", got)
	}

	store.Set("a", 1)
	if c.calls != 0 {
		t.Errorf("pruned edge fired %d times", c.calls)
	}
	store.Set("b", 1)
	if c.calls != 1 {
		t.Errorf("expected 1 call, got %d", c.calls)
	}
}

func TestDispose(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 0})

	c := &counter{}
	r := rt.NewReaction(c.inc)
	r.Track(func() { _ = store.Get("a") })

	r.Dispose()
	r.Dispose()

	if !r.Disposed() {
		t.Error("expected Disposed to be true")
	}
	id, _ := store.PropertyID("a")
	if subs := rt.Subscribers(id); len(subs) != 0 {
		t.Errorf("expected no subscribers after dispose, got %d", len(subs))
	}
	if _, ok := rt.Graph()[id]; !ok {
		t.Error("graph entries should never be removed")
	}

	store.Set("a", 1)
	if c.calls != 0 {
		t.Errorf("disposed reaction fired %d times", c.calls)
	}

	ran := false
	r.Track(func() {
		ran = true
		_ = store.Get("a")
	})
	if !ran {
		t.Error("Track on disposed reaction should still run fn")
	}
	if deps := r.Dependencies(); len(deps) != 0 {
		t.Errorf("disposed reaction gained dependencies: %v", deps)
	}
}

func TestDisposeKeepsOtherSubscribersOrdered(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 0})

	var order []int
	rs := make([]*Reaction, 3)
	for i := range rs {
		i := i
		rs[i] = rt.NewReaction(func() { order = append(order, i) })
		rs[i].Track(func() { _ = store.Get("a") })
	}

	rs[0].Dispose()
	store.Set("a", 1)

	if !reflect.DeepEqual(order, []int{1, 2}) {
		t.Errorf("expected [1 2], got %v", order)
	}
}

func TestTrackPanicRecordsNoEdges(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 0})
	r := rt.NewReaction(func() {})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		r.Track(func() {
			_ = store.Get("a")
			panic("boom")
		})
	}()

	if deps := r.Dependencies(); len(deps) != 0 {
		t.Errorf("expected no dependencies, got %v", deps)
	}

	// The frame was popped, so a later pass tracks normally.
	r.Track(func() { _ = store.Get("a") })
	if deps := r.Dependencies(); len(deps) != 1 {
		t.Errorf("expected 1 dependency, got %v", deps)
	}
}

func TestCycleDetection(t *testing.T) {
	rt := NewRuntime(WithMaxDepth(16))
	store := rt.Wrap(map[string]any{"n": 0})

	rt.Autorun(func() {
		n, _ := GetAs[int](store, "n")
		store.Set("n", n+1)
	})

	var got any
	func() {
		defer func() { got = recover() }()
		store.Set("n", 100)
	}()

	err, ok := got.(error)
	if !ok {
		t.Fatalf("expected error panic, got %v", got)
	}
	if !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
	var cycle *CycleError
	if !errors.As(err, &cycle) || cycle.Depth != 16 {
		t.Errorf("expected CycleError at depth 16, got %#v", err)
	}

	// Notification depth unwound with the panic.
	c := &counter{}
	other := rt.Wrap(map[string]any{"v": 0})
	r := rt.NewReaction(c.inc)
	r.Track(func() { _ = other.Get("v") })
	other.Set("v", 1)
	if c.calls != 1 {
		t.Errorf("expected runtime to keep working after cycle, got %d calls", c.calls)
	}
}

func TestTransitiveNotification(t *testing.T) {
	rt := NewRuntime()
	src := rt.Wrap(map[string]any{"v": 1})
	dst := rt.Wrap(map[string]any{"doubled": 0})

	rt.Autorun(func() {
		v, _ := GetAs[int](src, "v")
		dst.Set("doubled", v*2)
	})

	var seen []any
	rt.Autorun(func() {
		seen = append(seen, dst.Get("doubled"))
	})

	src.Set("v", 5)

	if !reflect.DeepEqual(seen, []any{2, 10}) {
		t.Errorf("expected [2 10], got %v", seen)
	}
}

func TestReactionName(t *testing.T) {
	rt := NewRuntime()
	r := rt.NewReaction(func() {}, WithName("render"))
	if r.Name() != "render" {
		t.Errorf("expected name render, got %q", r.Name())
	}
	if r.ID() == 0 {
		t.Error("expected non-zero id")
	}
}

func TestPackageLevelDefaults(t *testing.T) {
	store := Wrap(map[string]any{"count": 0})
	if store.Runtime() != Default() {
		t.Fatal("Wrap should use the default runtime")
	}

	runs := 0
	r := Autorun(func() {
		runs++
		_ = store.Get("count")
	})
	defer r.Dispose()

	store.Set("count", 1)
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}

	c := &counter{}
	nr := NewReaction(c.inc)
	defer nr.Dispose()
	nr.Track(func() {
		Untracked(func() { _ = store.Get("count") })
	})
	store.Set("count", 2)
	if c.calls != 0 {
		t.Errorf("untracked read subscribed the reaction")
	}
}
