package instrument

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/tracked/pkg/observable"
)

// MetricsConfig configures the Prometheus hooks.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "tracked").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for track duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus hooks.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "tracked",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics implements observable.Hooks by updating Prometheus collectors.
type Metrics struct {
	reads         prometheus.Counter
	writes        prometheus.Counter
	notifications prometheus.Counter
	fired         prometheus.Counter
	trackPasses   *prometheus.CounterVec
	trackDuration prometheus.Histogram
	edgesAdded    prometheus.Counter
	edgesRemoved  prometheus.Counter
}

// Prometheus creates hooks that register their collectors with the
// configured registry. Registering twice with the same registry panics,
// as with any promauto collector.
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Metrics{
		reads:         counter("reads_total", "Total number of tracked field reads"),
		writes:        counter("writes_total", "Total number of tracked field writes"),
		notifications: counter("notifications_total", "Total number of writes that notified at least one reaction"),
		fired:         counter("reactions_fired_total", "Total number of reaction callbacks invoked by writes"),
		edgesAdded:    counter("edges_added_total", "Total number of subscriber graph edges added"),
		edgesRemoved:  counter("edges_removed_total", "Total number of subscriber graph edges removed by pruning"),

		trackPasses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "track_passes_total",
			Help:        "Total number of Track passes by reaction name",
			ConstLabels: config.ConstLabels,
		}, []string{"reaction"}),

		trackDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "track_duration_seconds",
			Help:        "Track pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// Read implements observable.Hooks.
func (m *Metrics) Read(observable.PropertyID) {
	m.reads.Inc()
}

// Wrote implements observable.Hooks.
func (m *Metrics) Wrote(observable.PropertyID) {
	m.writes.Inc()
}

// Notified implements observable.Hooks.
func (m *Metrics) Notified(_ observable.PropertyID, subscribers int) func() {
	m.notifications.Inc()
	m.fired.Add(float64(subscribers))
	return func() {}
}

// TrackStarted implements observable.Hooks.
func (m *Metrics) TrackStarted(r *observable.Reaction) func(observable.TrackStats) {
	start := time.Now()
	name := r.Name()
	if name == "" {
		name = "anonymous"
	}
	return func(s observable.TrackStats) {
		m.trackDuration.Observe(time.Since(start).Seconds())
		m.trackPasses.WithLabelValues(name).Inc()
		m.edgesAdded.Add(float64(s.Added))
		m.edgesRemoved.Add(float64(s.Removed))
	}
}
