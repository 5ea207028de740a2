// Package observer binds render functions to the observable runtime.
//
// A Component wraps a render function. Every Render call tracks the
// fields the render function reads; a later write to any of them calls
// the component's refresh hook, which is where a UI layer requests a
// re-render (for example a force-update).
//
//	c := observer.New(rt, func() string {
//	    return fmt.Sprintf("Counter %v", store.Get("count"))
//	}, func() { needsRender = true })
//
//	html := c.Render()
//
// The engine calls refresh once per matching write. Queue coalesces
// those requests when a UI wants at most one re-render per frame.
package observer
