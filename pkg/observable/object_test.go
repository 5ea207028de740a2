package observable

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

func TestPropertyIDFormat(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"count": 0})

	id, ok := store.PropertyID("count")
	if !ok {
		t.Fatal("expected count to be tracked")
	}
	want := PropertyID("Observable(" + strconv.FormatUint(store.ID(), 10) + ":count)")
	if id != want {
		t.Errorf("expected %q, got %q", want, id)
	}

	again, _ := store.PropertyID("count")
	if again != id {
		t.Error("property id must be stable")
	}
}

func TestInstanceIsolation(t *testing.T) {
	rt := NewRuntime()
	a := rt.Wrap(map[string]any{"count": 0})
	b := rt.Wrap(map[string]any{"count": 0})

	ida, _ := a.PropertyID("count")
	idb, _ := b.PropertyID("count")
	if ida == idb {
		t.Fatalf("same-named fields of different objects share id %q", ida)
	}

	c := &counter{}
	r := rt.NewReaction(c.inc)
	r.Track(func() { _ = a.Get("count") })

	b.Set("count", 1)
	if c.calls != 0 {
		t.Errorf("write to other instance triggered %d calls", c.calls)
	}
	a.Set("count", 1)
	if c.calls != 1 {
		t.Errorf("expected 1 call, got %d", c.calls)
	}
}

func TestReadsAreLive(t *testing.T) {
	rt := NewRuntime()
	raw := map[string]any{"name": "a"}
	store := rt.Wrap(raw)

	raw["name"] = "b"
	if got := store.Get("name"); got != "b" {
		t.Errorf("expected live value b, got %v", got)
	}

	store.Set("name", "c")
	if raw["name"] != "c" {
		t.Errorf("write did not reach target, got %v", raw["name"])
	}
}

func TestKeysEnumeratedAtWrapTime(t *testing.T) {
	rt := NewRuntime()
	raw := map[string]any{"b": 1, "a": 2, "fn": func() {}}
	store := rt.Wrap(raw)

	if got := store.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected sorted tracked keys [a b], got %v", got)
	}

	raw["late"] = 3
	if _, ok := store.Lookup("late"); ok {
		t.Error("keys added after wrap must not be visible")
	}
	if _, ok := store.PropertyID("late"); ok {
		t.Error("keys added after wrap must not be tracked")
	}
}

func TestUnknownKeysLiveOnWrapper(t *testing.T) {
	rt := NewRuntime()
	raw := map[string]any{"a": 1}
	store := rt.Wrap(raw)

	c := &counter{}
	r := rt.NewReaction(c.inc)
	r.Track(func() { _ = store.Get("extra") })

	if err := store.Set("extra", 5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := store.Get("extra"); got != 5 {
		t.Errorf("expected 5, got %v", got)
	}
	if _, ok := raw["extra"]; ok {
		t.Error("unknown key must not be written to the target")
	}
	if c.calls != 0 {
		t.Errorf("unknown key notified %d times", c.calls)
	}
	if deps := r.Dependencies(); len(deps) != 0 {
		t.Errorf("unknown key was tracked: %v", deps)
	}
}

func TestPeekAndSnapshotDoNotTrack(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"a": 1, "b": "x"})

	r := rt.NewReaction(func() {})
	var snap map[string]any
	r.Track(func() {
		_ = store.Peek("a")
		snap = store.Snapshot()
	})

	if deps := r.Dependencies(); len(deps) != 0 {
		t.Errorf("expected no dependencies, got %v", deps)
	}
	if !reflect.DeepEqual(snap, map[string]any{"a": 1, "b": "x"}) {
		t.Errorf("unexpected snapshot %v", snap)
	}
}

type profile struct {
	Name   string
	Age    int
	Tags   []string
	Greet  func(string) string
	secret string
}

func TestWrapStruct(t *testing.T) {
	rt := NewRuntime()
	p := &profile{Name: "ada", Age: 36, secret: "s", Greet: func(s string) string { return "hi " + s }}
	store := rt.Wrap(p)

	if got := store.Keys(); !reflect.DeepEqual(got, []string{"Name", "Age", "Tags"}) {
		t.Fatalf("expected declaration order of data fields, got %v", got)
	}

	var names []any
	rt.Autorun(func() { names = append(names, store.Get("Name")) })

	if err := store.Set("Name", "grace"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if p.Name != "grace" {
		t.Errorf("struct not updated, got %q", p.Name)
	}
	if !reflect.DeepEqual(names, []any{"ada", "grace"}) {
		t.Errorf("unexpected runs %v", names)
	}

	// JSON numbers arrive as float64.
	if err := store.Set("Age", float64(37)); err != nil {
		t.Fatalf("Set Age: %v", err)
	}
	if p.Age != 37 {
		t.Errorf("expected 37, got %d", p.Age)
	}

	err := store.Set("Age", "old")
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}

	if err := store.Set("Tags", nil); err != nil || p.Tags != nil {
		t.Errorf("nil should store zero value, err=%v tags=%v", err, p.Tags)
	}

	out, err := store.Call("Greet", "bob")
	if err != nil || out != "hi bob" {
		t.Errorf("Call Greet = %v, %v", out, err)
	}
}

func TestWrapTypedMap(t *testing.T) {
	rt := NewRuntime()
	raw := map[string]int{"x": 1}
	store := rt.Wrap(raw)

	if err := store.Set("x", 2); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if raw["x"] != 2 {
		t.Errorf("expected 2, got %d", raw["x"])
	}
	if err := store.Set("x", "two"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

type counters struct {
	U uint
	N int
	B int8
	F float32
}

func TestNumericWritesMustFit(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		ok    bool
	}{
		{"negative into uint", "U", -1, false},
		{"negative float into uint", "U", float64(-1), false},
		{"fraction into int", "N", 1.5, false},
		{"overflow int8", "B", 300, false},
		{"overflow int8 from float", "B", float64(-129), false},
		{"float beyond int64", "N", 1e19, false},
		{"overflow float32", "F", 1e300, false},
		{"whole float into int", "N", float64(42), true},
		{"int into uint", "U", 7, true},
		{"fits int8", "B", float64(-128), true},
		{"int into float32", "F", 3, true},
		{"uint into int8", "B", uint(127), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &counters{U: 9, N: 9, B: 9, F: 9}
			store := NewRuntime().Wrap(c)
			before := store.Peek(tt.key)

			err := store.Set(tt.key, tt.value)
			if tt.ok {
				if err != nil {
					t.Fatalf("Set(%s, %v): %v", tt.key, tt.value, err)
				}
				return
			}
			if !errors.Is(err, ErrTypeMismatch) {
				t.Fatalf("Set(%s, %v): expected ErrTypeMismatch, got %v", tt.key, tt.value, err)
			}
			if after := store.Peek(tt.key); after != before {
				t.Errorf("rejected write changed %s from %v to %v", tt.key, before, after)
			}
		})
	}
}

func TestTypedMapRejectsTruncation(t *testing.T) {
	raw := map[string]uint8{"x": 1}
	store := NewRuntime().Wrap(raw)

	if err := store.Set("x", 2.5); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	if raw["x"] != 1 {
		t.Errorf("expected 1 to be kept, got %d", raw["x"])
	}
}

func TestWrapUnsupportedTarget(t *testing.T) {
	rt := NewRuntime()
	for _, target := range []any{nil, 42, "str", profile{}, (map[string]any)(nil)} {
		store := rt.Wrap(target)
		if len(store.Keys()) != 0 {
			t.Errorf("%T: expected no keys, got %v", target, store.Keys())
		}
	}
}

func TestMethodBoundToWrapperNotifies(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{
		"count": 0,
		"increment": Method(func(self *Object, _ ...any) any {
			n, _ := GetAs[int](self, "count")
			return self.Set("count", n+1)
		}),
	})

	if _, ok := store.PropertyID("increment"); ok {
		t.Fatal("method fields must not be tracked")
	}

	var seen []any
	rt.Autorun(func() { seen = append(seen, store.Get("count")) })

	if _, err := store.Call("increment"); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !reflect.DeepEqual(seen, []any{0, 1}) {
		t.Errorf("bound method write should notify, got %v", seen)
	}
}

func TestPlainFuncBypassesNotification(t *testing.T) {
	rt := NewRuntime()
	raw := map[string]any{"count": 0}
	raw["increment"] = func() { raw["count"] = raw["count"].(int) + 1 }
	store := rt.Wrap(raw)

	runs := 0
	rt.Autorun(func() {
		runs++
		_ = store.Get("count")
	})

	if _, err := store.Call("increment"); err != nil {
		t.Fatalf("Call: %v", err)
	}

	// The target changed but nothing was notified.
	if store.Peek("count") != 1 {
		t.Errorf("expected count 1, got %v", store.Peek("count"))
	}
	if runs != 1 {
		t.Errorf("plain function write must bypass notification, got %d runs", runs)
	}
}

func TestCallErrors(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{
		"n":   1,
		"add": func(a, b int) int { return a + b },
		"sum": func(xs ...int) int {
			total := 0
			for _, x := range xs {
				total += x
			}
			return total
		},
	})

	tests := []struct {
		name string
		key  string
		args []any
		want any
		err  error
	}{
		{"data field", "n", nil, nil, ErrNotCallable},
		{"missing", "nope", nil, nil, ErrUnknownField},
		{"arity", "add", []any{1}, nil, ErrBadArguments},
		{"type", "add", []any{1, "x"}, nil, ErrBadArguments},
		{"ok", "add", []any{1, 2}, 3, nil},
		{"variadic", "sum", []any{1, 2, 3}, 6, nil},
		{"variadic empty", "sum", nil, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Call(tt.key, tt.args...)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				if !strings.Contains(err.Error(), tt.key) {
					t.Errorf("error should name the field: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGetAs(t *testing.T) {
	rt := NewRuntime()
	store := rt.Wrap(map[string]any{"n": 3, "s": "x"})

	if n, ok := GetAs[int](store, "n"); !ok || n != 3 {
		t.Errorf("GetAs[int] = %v, %v", n, ok)
	}
	if _, ok := GetAs[int](store, "s"); ok {
		t.Error("GetAs with wrong type should fail")
	}
	if _, ok := GetAs[string](store, "missing"); ok {
		t.Error("GetAs on missing key should fail")
	}
}
