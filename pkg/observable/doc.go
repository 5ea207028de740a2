// Package observable provides transparent reactivity over plain data.
//
// A plain record (a map with string keys or a pointer to a struct) is
// wrapped into an Object. Reading a field of the Object inside a tracked
// function records the read; writing the field re-runs every Reaction
// that read it, synchronously and in subscription order.
//
// # Core Types
//
// Object is a tracked wrapper around a target record:
//
//	store := observable.Wrap(map[string]any{"count": 0})
//	n := store.Get("count")  // Read (recorded by the current Track)
//	store.Set("count", 5)    // Write (re-runs subscribed reactions)
//
// Reaction pairs a change callback with a Track operation:
//
//	r := observable.NewReaction(func() { fmt.Println("changed") })
//	r.Track(func() { _ = store.Get("count") })
//
// Autorun is a Reaction whose callback is also its tracked function:
//
//	observable.Autorun(func() {
//	    fmt.Println("count is", store.Get("count"))
//	})
//
// # Subscriptions
//
// Edges in the subscriber graph are only ever added by Track. A reaction
// that stops reading a field stays subscribed to it until it is disposed,
// unless it was created WithPruning.
//
// # Methods
//
// Function-valued fields are copied onto the wrapper and are never
// tracked. A field holding a Method is invoked with the wrapper as its
// receiver, so writes made through it notify subscribers. Any other
// function is invoked as-is and any writes it makes to the target
// bypass notification.
//
// # Thread Safety
//
// The subscriber graph and object targets are safe for concurrent use.
// Tracking state is kept per goroutine, so a Track call only records
// reads made on its own goroutine. Notification is synchronous: callbacks
// run on the writer's goroutine.
package observable
