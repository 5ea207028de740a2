package observable

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// target is the record an Object wraps. Callers hold the Object lock.
type target interface {
	keys() []string
	callable(key string) bool
	load(key string) any
	store(key string, value any) error
}

func newTarget(v any) (target, bool) {
	if m, ok := v.(map[string]any); ok {
		if m == nil {
			return nil, false
		}
		return mapTarget(m), true
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String && !rv.IsNil():
		return reflectMapTarget{v: rv}, true
	case rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct:
		return newStructTarget(rv.Elem()), true
	}
	return nil, false
}

// mapTarget is the fast path for map[string]any.
type mapTarget map[string]any

func (m mapTarget) keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m mapTarget) callable(key string) bool {
	return isFunc(m[key])
}

func (m mapTarget) load(key string) any {
	return m[key]
}

func (m mapTarget) store(key string, value any) error {
	m[key] = value
	return nil
}

// reflectMapTarget wraps any other map with a string key kind.
type reflectMapTarget struct {
	v reflect.Value
}

func (m reflectMapTarget) keys() []string {
	keys := make([]string, 0, m.v.Len())
	for _, k := range m.v.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys
}

func (m reflectMapTarget) key(key string) reflect.Value {
	return reflect.ValueOf(key).Convert(m.v.Type().Key())
}

func (m reflectMapTarget) callable(key string) bool {
	v := m.v.MapIndex(m.key(key))
	return v.IsValid() && isFunc(v.Interface())
}

func (m reflectMapTarget) load(key string) any {
	v := m.v.MapIndex(m.key(key))
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

func (m reflectMapTarget) store(key string, value any) error {
	v, err := convertValue(value, m.v.Type().Elem())
	if err != nil {
		return err
	}
	m.v.SetMapIndex(m.key(key), v)
	return nil
}

// structTarget wraps the exported, non-embedded fields of an addressable
// struct.
type structTarget struct {
	v      reflect.Value
	names  []string
	fields map[string][]int
}

func newStructTarget(v reflect.Value) structTarget {
	t := structTarget{v: v, fields: make(map[string][]int)}
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		t.names = append(t.names, f.Name)
		t.fields[f.Name] = f.Index
	}
	return t
}

func (s structTarget) keys() []string {
	return s.names
}

func (s structTarget) field(key string) reflect.Value {
	return s.v.FieldByIndex(s.fields[key])
}

func (s structTarget) callable(key string) bool {
	return s.field(key).Kind() == reflect.Func
}

func (s structTarget) load(key string) any {
	return s.field(key).Interface()
}

func (s structTarget) store(key string, value any) error {
	f := s.field(key)
	v, err := convertValue(value, f.Type())
	if err != nil {
		return err
	}
	f.Set(v)
	return nil
}

type emptyTarget struct{}

func (emptyTarget) keys() []string          { return nil }
func (emptyTarget) callable(string) bool    { return false }
func (emptyTarget) load(string) any         { return nil }
func (emptyTarget) store(string, any) error { return nil }

func isFunc(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Func
}

// convertValue prepares value for storage in a slot of type t. Nil maps
// to the zero value; numeric kinds convert between each other so values
// decoded from JSON (float64) fit integer fields.
func convertValue(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(t.Kind()) {
		if !numericFits(v, t) {
			return reflect.Value{}, fmt.Errorf("%w: %v does not fit %s", ErrTypeMismatch, value, t)
		}
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s into %s", ErrTypeMismatch, v.Type(), t)
}

// numericFits reports whether v converts to t without wrapping,
// truncating a fraction, or overflowing.
func numericFits(v reflect.Value, t reflect.Type) bool {
	zero := reflect.Zero(t)
	src := v.Kind()

	switch {
	case isInt(t.Kind()):
		switch {
		case isInt(src):
			return !zero.OverflowInt(v.Int())
		case isUint(src):
			return v.Uint() <= math.MaxInt64 && !zero.OverflowInt(int64(v.Uint()))
		default:
			f := v.Float()
			if !integral(f) || f < -(1<<63) || f >= 1<<63 {
				return false
			}
			return !zero.OverflowInt(int64(f))
		}
	case isUint(t.Kind()):
		switch {
		case isInt(src):
			return v.Int() >= 0 && !zero.OverflowUint(uint64(v.Int()))
		case isUint(src):
			return !zero.OverflowUint(v.Uint())
		default:
			f := v.Float()
			if !integral(f) || f < 0 || f >= 1<<64 {
				return false
			}
			return !zero.OverflowUint(uint64(f))
		}
	default:
		if src == reflect.Float32 || src == reflect.Float64 {
			f := v.Float()
			return math.IsNaN(f) || math.IsInf(f, 0) || !zero.OverflowFloat(f)
		}
		return true
	}
}

func integral(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
