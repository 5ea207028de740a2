package observer

import (
	"sync/atomic"

	"github.com/vango-dev/tracked/pkg/observable"
)

// Component is a render function whose reads are tracked.
type Component[T any] struct {
	render   func() T
	reaction *observable.Reaction
	renders  atomic.Int64
}

// New creates a component. refresh is invoked synchronously whenever a
// field read by the last Render is written. A nil refresh re-renders
// immediately and discards the result.
func New[T any](rt *observable.Runtime, render func() T, refresh func(), opts ...observable.ReactionOption) *Component[T] {
	c := &Component[T]{render: render}
	if refresh == nil {
		refresh = func() { c.Render() }
	}
	c.reaction = rt.NewReaction(refresh, opts...)
	return c
}

// Render runs the render function under tracking and returns its result.
func (c *Component[T]) Render() T {
	var out T
	c.reaction.Track(func() {
		out = c.render()
	})
	c.renders.Add(1)
	return out
}

// Renders returns how many times Render has run.
func (c *Component[T]) Renders() int {
	return int(c.renders.Load())
}

// ID returns the id of the component's reaction.
func (c *Component[T]) ID() uint64 {
	return c.reaction.ID()
}

// Reaction returns the reaction backing the component.
func (c *Component[T]) Reaction() *observable.Reaction {
	return c.reaction
}

// Dispose unsubscribes the component. Render still works but no longer
// tracks reads.
func (c *Component[T]) Dispose() {
	c.reaction.Dispose()
}
