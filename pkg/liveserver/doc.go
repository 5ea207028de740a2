// Package liveserver exposes one tracked object over HTTP and WebSocket.
//
// Routes:
//
//	GET  /state        snapshot of every tracked field
//	GET  /state/{key}  one field
//	PUT  /state/{key}  write a field (JSON body); notifies subscribers
//	GET  /graph        subscriber graph (property id -> reaction ids)
//	GET  /ws           WebSocket stream of state messages
//	GET  /metrics      Prometheus metrics, when a gatherer is configured
//	GET  /healthz      liveness
//
// The server keeps an autorun reaction over every field of the object.
// Each time it runs, the new state is pushed to every connected
// WebSocket client, which makes the server a remote observer of the
// store in the way a UI binding is a local one.
package liveserver
