package observable

import (
	"sync"
	"sync/atomic"
)

// Reaction pairs a change callback with dependency tracking.
//
// Track runs a function and subscribes the callback to every field the
// function read. A later write to any of those fields invokes the
// callback synchronously. The callback typically calls Track again, which
// refreshes the dependency set.
type Reaction struct {
	id uint64
	rt *Runtime

	// onChange is invoked once per write to a subscribed field.
	onChange func()

	name  string
	prune bool

	// deps is the ordered set of properties this reaction is subscribed to.
	deps   []PropertyID
	depSet map[PropertyID]struct{}
	mu     sync.Mutex

	disposed atomic.Bool
}

// ReactionOption configures a Reaction.
type ReactionOption func(*Reaction)

// WithName names the reaction for logs and instrumentation.
func WithName(name string) ReactionOption {
	return func(r *Reaction) {
		r.name = name
	}
}

// WithPruning makes every Track pass drop the subscriptions the pass did
// not read again. Without it subscriptions only accumulate.
func WithPruning() ReactionOption {
	return func(r *Reaction) {
		r.prune = true
	}
}

// NewReaction creates a reaction whose callback is onChange. It has no
// dependencies until Track is called.
func (rt *Runtime) NewReaction(onChange func(), opts ...ReactionOption) *Reaction {
	r := &Reaction{
		id:       nextID(),
		rt:       rt,
		onChange: onChange,
		depSet:   make(map[PropertyID]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Autorun creates a reaction whose callback is cb and tracks cb once.
// cb runs immediately and again after every write to a field it read,
// re-tracking on each run.
func (rt *Runtime) Autorun(cb func(), opts ...ReactionOption) *Reaction {
	r := rt.NewReaction(nil, opts...)
	r.onChange = func() { r.Track(cb) }
	r.Track(cb)
	return r
}

// ID returns the unique identifier for this reaction.
func (r *Reaction) ID() uint64 {
	return r.id
}

// Name returns the name set with WithName.
func (r *Reaction) Name() string {
	return r.name
}

// Disposed reports whether Dispose has been called.
func (r *Reaction) Disposed() bool {
	return r.disposed.Load()
}

// Track runs fn and subscribes the reaction to every field fn read.
//
// Reads are collected in a fresh frame, so a Track started while fn is
// running (for example by a reaction notified from a write inside fn)
// does not disturb this one. Duplicate reads collapse to one edge. If fn
// panics no edges are recorded and the panic propagates.
//
// Tracking on a disposed reaction runs fn untracked.
func (r *Reaction) Track(fn func()) {
	if r.disposed.Load() {
		r.rt.Untracked(fn)
		return
	}

	var stats TrackStats
	done := r.rt.hooks.TrackStarted(r)
	defer func() { done(stats) }()

	reads := r.rt.collect(fn, false)
	stats = r.link(reads)

	if r.name != "" {
		r.rt.log().Debug("tracked",
			"reaction", r.name,
			"reads", stats.Reads,
			"added", stats.Added,
			"removed", stats.Removed)
	}
}

// link records edges for reads, first occurrence order preserved.
func (r *Reaction) link(reads []PropertyID) TrackStats {
	stats := TrackStats{Reads: len(reads)}

	seen := make(map[PropertyID]struct{}, len(reads))
	ordered := make([]PropertyID, 0, len(reads))
	for _, id := range reads {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Dispose may have won the race while fn was running.
	if r.disposed.Load() {
		return stats
	}

	for _, id := range ordered {
		if r.rt.graph.subscribe(id, r) {
			stats.Added++
		}
		if _, ok := r.depSet[id]; !ok {
			r.depSet[id] = struct{}{}
			r.deps = append(r.deps, id)
		}
	}

	if r.prune {
		kept := r.deps[:0]
		for _, id := range r.deps {
			if _, ok := seen[id]; ok {
				kept = append(kept, id)
				continue
			}
			if r.rt.graph.unsubscribe(id, r) {
				stats.Removed++
			}
			delete(r.depSet, id)
		}
		r.deps = kept
	}

	return stats
}

// Dependencies returns the properties the reaction is subscribed to, in
// the order they were first tracked.
func (r *Reaction) Dependencies() []PropertyID {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PropertyID, len(r.deps))
	copy(out, r.deps)
	return out
}

// Dispose removes the reaction from every subscriber graph entry it is in.
// The callback is never invoked again. Dispose is idempotent.
func (r *Reaction) Dispose() {
	if r.disposed.Swap(true) {
		return
	}

	r.mu.Lock()
	for _, id := range r.deps {
		r.rt.graph.unsubscribe(id, r)
	}
	n := len(r.deps)
	r.deps = nil
	r.depSet = make(map[PropertyID]struct{})
	r.mu.Unlock()

	r.rt.log().Debug("reaction disposed", "reaction", r.id, "name", r.name, "edges", n)
}

// fire invokes the change callback unless the reaction is disposed.
func (r *Reaction) fire() {
	if r.disposed.Load() || r.onChange == nil {
		return
	}
	r.onChange()
}
