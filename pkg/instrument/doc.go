// Package instrument provides observability hooks for the observable
// runtime.
//
// # Prometheus
//
//	rt := observable.NewRuntime(
//	    observable.WithHooks(instrument.Prometheus()),
//	)
//
// Exported metrics (default namespace "tracked"):
//   - reads_total: tracked field reads
//   - writes_total: tracked field writes
//   - notifications_total: writes that had at least one subscriber
//   - reactions_fired_total: reaction callbacks invoked by writes
//   - track_passes_total{reaction}: Track passes by reaction name
//   - track_duration_seconds: Track pass duration
//   - edges_added_total, edges_removed_total: subscriber graph changes
//
// # OpenTelemetry
//
//	rt := observable.NewRuntime(
//	    observable.WithHooks(instrument.OpenTelemetry()),
//	)
//
// Each Track pass produces a "tracked.track" span and each notifying
// write a "tracked.notify" span, using the global tracer provider.
//
// Both can be combined with observable.MultiHooks.
package instrument
