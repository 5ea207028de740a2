package observable

import (
	"runtime"
)

// frame records the reads made during one Track call.
// A discard frame swallows reads, which is how Untracked works.
type frame struct {
	reads   []PropertyID
	discard bool
}

// trackingContext holds the tracking state of one goroutine.
// Frames form a stack so a Track started from inside another Track (for
// example a reaction re-tracking while a write notifies it) gets its own
// read set and leaves the outer one intact.
type trackingContext struct {
	gid    uint64
	frames []*frame

	// depth is the current notification nesting depth.
	depth int
}

func (c *trackingContext) idle() bool {
	return len(c.frames) == 0 && c.depth == 0
}

// getGoroutineID returns the id of the current goroutine, parsed from the
// header of its stack trace ("goroutine <id> [...").
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// context returns the tracking context of the current goroutine,
// creating it if needed.
func (rt *Runtime) context() *trackingContext {
	gid := getGoroutineID()
	if ctx, ok := rt.contexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}
	ctx := &trackingContext{gid: gid}
	rt.contexts.Store(gid, ctx)
	return ctx
}

// release drops the goroutine's context once nothing is in flight on it.
func (rt *Runtime) release(ctx *trackingContext) {
	if ctx.idle() {
		rt.contexts.Delete(ctx.gid)
	}
}

// recordRead appends id to the innermost frame of the current goroutine.
// Reads outside any Track are not recorded.
func (rt *Runtime) recordRead(id PropertyID) {
	rt.hooks.Read(id)

	v, ok := rt.contexts.Load(getGoroutineID())
	if !ok {
		return
	}
	ctx := v.(*trackingContext)
	if len(ctx.frames) == 0 {
		return
	}
	top := ctx.frames[len(ctx.frames)-1]
	if top.discard {
		return
	}
	top.reads = append(top.reads, id)
}

// collect runs fn inside a fresh frame and returns the reads it made, in
// call order and including duplicates. The frame is popped even if fn
// panics; the panic propagates and nothing is returned.
func (rt *Runtime) collect(fn func(), discard bool) []PropertyID {
	ctx := rt.context()
	f := &frame{discard: discard}
	ctx.frames = append(ctx.frames, f)
	defer func() {
		ctx.frames[len(ctx.frames)-1] = nil
		ctx.frames = ctx.frames[:len(ctx.frames)-1]
		rt.release(ctx)
	}()

	fn()
	return f.reads
}

// Untracked runs fn without recording any of its reads into the
// enclosing Track call. A Track started inside fn still records its own.
func (rt *Runtime) Untracked(fn func()) {
	rt.collect(fn, true)
}
