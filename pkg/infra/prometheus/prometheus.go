package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	latencyBuckets = []float64{
		5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000,
	}

	DecisionTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskengine_decisions_total",
			Help: "Composite decisions by action and risk level",
		},
		[]string{"action", "risk_level"},
	)

	ProviderLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riskengine_provider_latency_ms",
			Help:    "External reputation provider latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"provider", "outcome"},
	)

	ThreatCacheHits = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskengine_threat_cache_total",
			Help: "Threat-intel cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	EventBufferSize = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "riskengine_event_buffer_size",
			Help: "Security events currently buffered",
		},
	)

	EventsFlushed = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskengine_events_flushed_total",
			Help: "Security events flushed to storage by outcome",
		},
		[]string{"outcome"},
	)

	AlertsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskengine_alerts_total",
			Help: "Alerts by type and delivery outcome",
		},
		[]string{"type", "outcome"},
	)
)

// Handler exposes the engine registry for the metrics port.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
