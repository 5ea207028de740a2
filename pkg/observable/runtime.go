package observable

import (
	"log/slog"
	"sync"
)

// DefaultMaxDepth is the notification depth at which a runtime reports a
// reaction cycle.
const DefaultMaxDepth = 1024

// Runtime owns a subscriber graph and the per-goroutine tracking state.
// Objects and reactions created from the same runtime see each other;
// objects from different runtimes never notify each other's reactions.
type Runtime struct {
	graph *subscriberGraph

	// contexts stores per-goroutine tracking contexts keyed by goroutine id.
	contexts sync.Map

	// maxDepth bounds nested notification. Zero means unbounded.
	maxDepth int

	hooks  Hooks
	logger *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithMaxDepth sets the notification depth limit. Zero disables the limit,
// in which case a write cycle recurses until the stack is exhausted.
func WithMaxDepth(n int) Option {
	return func(rt *Runtime) {
		if n >= 0 {
			rt.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for debug and cycle reports.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// WithHooks installs instrumentation hooks.
func WithHooks(hooks Hooks) Option {
	return func(rt *Runtime) {
		if hooks != nil {
			rt.hooks = hooks
		}
	}
}

// NewRuntime creates a runtime with an empty subscriber graph.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		graph:    newSubscriberGraph(),
		maxDepth: DefaultMaxDepth,
		hooks:    NopHooks{},
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Runtime) log() *slog.Logger {
	if rt.logger != nil {
		return rt.logger
	}
	return slog.Default().With("component", "observable")
}

// MaxDepth returns the notification depth limit.
func (rt *Runtime) MaxDepth() int {
	return rt.maxDepth
}

// Subscribers returns the reactions subscribed to id, in the order they
// first tracked it.
func (rt *Runtime) Subscribers(id PropertyID) []*Reaction {
	return rt.graph.subscribers(id)
}

// Graph returns a copy of the subscriber graph as reaction ids.
func (rt *Runtime) Graph() map[PropertyID][]uint64 {
	return rt.graph.dump()
}

// notify runs every reaction subscribed to id on the writer's goroutine.
func (rt *Runtime) notify(id PropertyID) {
	subs := rt.graph.subscribers(id)
	if len(subs) == 0 {
		return
	}

	ctx := rt.context()
	if rt.maxDepth > 0 && ctx.depth >= rt.maxDepth {
		depth := ctx.depth
		rt.release(ctx)
		rt.log().Error("reaction cycle detected",
			"property", string(id),
			"depth", depth,
			"subscribers", len(subs))
		panic(&CycleError{Property: id, Depth: depth})
	}

	done := rt.hooks.Notified(id, len(subs))
	ctx.depth++
	defer func() {
		ctx.depth--
		rt.release(ctx)
		done()
	}()

	for _, r := range subs {
		r.fire()
	}
}

// defaultRuntime backs the package-level functions.
var defaultRuntime = NewRuntime()

// Default returns the process-wide runtime used by Wrap, NewReaction,
// Autorun and Untracked.
func Default() *Runtime {
	return defaultRuntime
}

// Wrap wraps target using the default runtime.
func Wrap(target any) *Object {
	return defaultRuntime.Wrap(target)
}

// NewReaction creates a reaction in the default runtime.
func NewReaction(onChange func(), opts ...ReactionOption) *Reaction {
	return defaultRuntime.NewReaction(onChange, opts...)
}

// Autorun runs cb in the default runtime and re-runs it after every write
// to a field it read.
func Autorun(cb func(), opts ...ReactionOption) *Reaction {
	return defaultRuntime.Autorun(cb, opts...)
}

// Untracked runs fn in the default runtime without recording its reads.
func Untracked(fn func()) {
	defaultRuntime.Untracked(fn)
}
