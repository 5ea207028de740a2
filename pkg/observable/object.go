package observable

import (
	"fmt"
	"reflect"
	"sync"
)

// Method is a function-valued field bound to its wrapper. Call passes the
// Object as self, so writes made through self notify subscribers.
//
//	store := observable.Wrap(map[string]any{
//	    "count": 0,
//	    "increment": observable.Method(func(self *observable.Object, _ ...any) any {
//	        n, _ := observable.GetAs[int](self, "count")
//	        return self.Set("count", n+1)
//	    }),
//	})
type Method func(self *Object, args ...any) any

// Object is a tracked wrapper around a target record.
//
// Fields are enumerated once, when the object is created. Reads of
// non-function fields made inside Track are recorded; writes store into
// the target and notify every subscribed reaction. Values are always
// read live from the target.
type Object struct {
	id     uint64
	rt     *Runtime
	target target

	// keys are the tracked fields in target order.
	keys  []string
	props map[string]PropertyID

	// plain holds function-valued fields and any property set on the
	// wrapper that the target did not have at wrap time. None of them
	// are tracked.
	plain map[string]any

	mu sync.RWMutex
}

// Wrap creates a tracked object over target. Supported targets are maps
// with string keys and pointers to structs (exported fields only, in
// declaration order). Map keys are tracked in sorted order.
//
// Wrapping never fails: any other target yields an object without
// fields. The caller keeps ownership of target; values written through
// the object are visible there, and the same target must not be wrapped
// twice.
func (rt *Runtime) Wrap(target any) *Object {
	o := &Object{
		id:    nextID(),
		rt:    rt,
		props: make(map[string]PropertyID),
		plain: make(map[string]any),
	}

	t, ok := newTarget(target)
	if !ok {
		rt.log().Warn("unsupported target, wrapping as empty object",
			"type", fmt.Sprintf("%T", target))
		t = emptyTarget{}
	}
	o.target = t

	for _, key := range t.keys() {
		if t.callable(key) {
			o.plain[key] = t.load(key)
			continue
		}
		o.keys = append(o.keys, key)
		o.props[key] = propertyID(o.id, key)
	}
	return o
}

// ID returns the instance id of the object.
func (o *Object) ID() uint64 {
	return o.id
}

// Runtime returns the runtime the object notifies through.
func (o *Object) Runtime() *Runtime {
	return o.rt
}

// Keys returns the tracked field names.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// PropertyID returns the identity of a tracked field.
func (o *Object) PropertyID(key string) (PropertyID, bool) {
	id, ok := o.props[key]
	return id, ok
}

// Get returns the current value of key, recording the read. Unknown keys
// return nil.
func (o *Object) Get(key string) any {
	v, _ := o.Lookup(key)
	return v
}

// Lookup is like Get but also reports whether the key exists.
func (o *Object) Lookup(key string) (any, bool) {
	if id, ok := o.props[key]; ok {
		o.rt.recordRead(id)
		return o.load(key), true
	}

	o.mu.RLock()
	v, ok := o.plain[key]
	o.mu.RUnlock()
	return v, ok
}

// Peek returns the current value of key without recording a read.
func (o *Object) Peek(key string) any {
	if _, ok := o.props[key]; ok {
		return o.load(key)
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.plain[key]
}

// Set stores value into key and synchronously invokes every reaction
// subscribed to it, in the order they subscribed. No equality check is
// made: every write notifies.
//
// Keys the target did not have at wrap time are stored on the wrapper
// only and never notify. Set returns ErrTypeMismatch if a struct field
// cannot hold value.
func (o *Object) Set(key string, value any) error {
	id, ok := o.props[key]
	if !ok {
		o.mu.Lock()
		o.plain[key] = value
		o.mu.Unlock()
		return nil
	}

	o.mu.Lock()
	err := o.target.store(key, value)
	o.mu.Unlock()
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	o.rt.hooks.Wrote(id)
	o.rt.notify(id)
	return nil
}

// Snapshot returns the tracked fields and their current values without
// recording reads.
func (o *Object) Snapshot() map[string]any {
	out := make(map[string]any, len(o.keys))
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, key := range o.keys {
		out[key] = o.target.load(key)
	}
	return out
}

// Call invokes a function-valued field. Method values receive the
// wrapper as self; any other function is called with args converted to
// its parameter types and returns its first result, if any. Writes such a
// function makes to the original target are not seen by subscribers.
func (o *Object) Call(key string, args ...any) (any, error) {
	o.mu.RLock()
	fn, ok := o.plain[key]
	o.mu.RUnlock()
	if !ok {
		if _, tracked := o.props[key]; tracked {
			return nil, fmt.Errorf("%w: %q", ErrNotCallable, key)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}

	if rv := reflect.ValueOf(fn); rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, fmt.Errorf("%w: %q", ErrNotCallable, key)
	}

	switch f := fn.(type) {
	case Method:
		return f(o, args...), nil
	case func(*Object, ...any) any:
		return f(o, args...), nil
	case func():
		if len(args) != 0 {
			return nil, fmt.Errorf("%w: %q takes no arguments", ErrBadArguments, key)
		}
		f()
		return nil, nil
	}
	return callReflect(key, fn, args)
}

func (o *Object) load(key string) any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.target.load(key)
}

func callReflect(key string, fn any, args []any) (any, error) {
	rv := reflect.ValueOf(fn)
	ft := rv.Type()
	if (!ft.IsVariadic() && len(args) != ft.NumIn()) || (ft.IsVariadic() && len(args) < ft.NumIn()-1) {
		return nil, fmt.Errorf("%w: %q takes %d arguments, got %d", ErrBadArguments, key, ft.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= ft.NumIn()-1 {
			pt = ft.In(ft.NumIn() - 1).Elem()
		} else {
			pt = ft.In(i)
		}
		v, err := convertValue(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("%w: %q argument %d: %v", ErrBadArguments, key, i, err)
		}
		in[i] = v
	}

	out := rv.Call(in)
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

// GetAs reads key from o, recording the read, and asserts it to T.
// The second result is false when the key is missing or holds another type.
func GetAs[T any](o *Object, key string) (T, bool) {
	v, ok := o.Lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
