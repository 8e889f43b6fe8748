package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the map service.
type Metrics struct {
	Redraws          *prometheus.CounterVec // labels: trigger={initial,month_change,redraw}
	RedrawDuration   prometheus.Histogram
	MonthChanges     prometheus.Counter
	FeaturesRendered prometheus.Gauge
	HoverEvents      *prometheus.CounterVec // labels: event={enter,move,leave}

	// Render cache metrics.
	RenderCache *prometheus.CounterVec // labels: result={hit,miss}

	// Redraw-event pipeline metrics.
	EventsDropped   prometheus.Counter
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
	PipelineRunning prometheus.Gauge
	BatchSize       prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates all service metrics and registers them with reg.
// The offline tools pass a private registry because nothing scrapes them.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Redraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crime_map",
			Name:      "redraws_total",
			Help:      "Map redraws by trigger.",
		}, []string{"trigger"}),
		RedrawDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crime_map",
			Name:      "redraw_duration_seconds",
			Help:      "Time to rebuild the lookup, recolor and rejoin every district shape.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		MonthChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crime_map",
			Name:      "month_changes_total",
			Help:      "Month selector changes.",
		}),
		FeaturesRendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crime_map",
			Name:      "features_rendered",
			Help:      "District shapes on the surface after the last redraw.",
		}),
		HoverEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crime_map",
			Name:      "hover_events_total",
			Help:      "Pointer events on district shapes by kind.",
		}, []string{"event"}),
		RenderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crime_map",
			Name:      "render_cache_total",
			Help:      "Per-month SVG cache lookups by result.",
		}, []string{"result"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crime_map",
			Name:      "redraw_events_dropped_total",
			Help:      "Redraw events dropped because the publish queue was full.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crime_map",
			Name:      "redraw_events_published_total",
			Help:      "Redraw events written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crime_map",
			Name:      "redraw_publish_errors_total",
			Help:      "Failed attempts to encode or write redraw events.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crime_map",
			Name:      "pipeline_running",
			Help:      "1 when the redraw-event pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crime_map",
			Name:      "redraw_event_batch_size",
			Help:      "Number of redraw events per published batch.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
	}

	reg.MustRegister(
		m.Redraws,
		m.RedrawDuration,
		m.MonthChanges,
		m.FeaturesRendered,
		m.HoverEvents,
		m.RenderCache,
		m.EventsDropped,
		m.EventsPublished,
		m.PublishErrors,
		m.PipelineRunning,
		m.BatchSize,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}
