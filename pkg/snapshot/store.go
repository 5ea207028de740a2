package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"github.com/vango-dev/tracked/pkg/observable"
)

// ErrNotFound is returned by Load when no snapshot exists for a name.
var ErrNotFound = errors.New("snapshot: not found")

// ErrInvalidName is returned for names that are not safe as file or
// object keys.
var ErrInvalidName = errors.New("snapshot: invalid name")

// Store saves and loads named snapshots.
type Store interface {
	Save(ctx context.Context, name string, state map[string]any) error
	Load(ctx context.Context, name string) (map[string]any, error)
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func checkName(name string) error {
	if !validName.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// Autosave saves obj to store under name after every write to a field it
// holds, and once immediately. Save errors go to onErr; a nil onErr logs
// them. The returned reaction stops saving when disposed.
func Autosave(ctx context.Context, obj *observable.Object, store Store, name string, onErr func(error)) *observable.Reaction {
	if onErr == nil {
		logger := slog.Default().With("component", "snapshot")
		onErr = func(err error) {
			logger.Error("autosave failed", "name", name, "error", err)
		}
	}

	return obj.Runtime().Autorun(func() {
		// Reading every key subscribes the reaction to all of them.
		state := make(map[string]any, len(obj.Keys()))
		for _, key := range obj.Keys() {
			state[key] = obj.Get(key)
		}
		if err := store.Save(ctx, name, state); err != nil {
			onErr(err)
		}
	}, observable.WithName("autosave:"+name))
}

// Restore loads the snapshot stored under name and writes each value
// into obj. Keys obj does not track are skipped. Returns the number of
// fields restored.
func Restore(ctx context.Context, obj *observable.Object, store Store, name string) (int, error) {
	state, err := store.Load(ctx, name)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, key := range obj.Keys() {
		v, ok := state[key]
		if !ok {
			continue
		}
		if err := obj.Set(key, v); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
