package exchange

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the exchange's operational metrics, registered on the
// registry passed in the config.
type Metrics struct {
	pairs       prometheus.Gauge
	operations  *prometheus.CounterVec
	errors      *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec
	eventsTotal *prometheus.CounterVec
}

// NewMetrics registers the exchange metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		pairs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "pooliverse",
			Subsystem: "exchange",
			Name:      "pairs",
			Help:      "Number of registered pairs.",
		}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pooliverse",
			Subsystem: "exchange",
			Name:      "operations_total",
			Help:      "Completed operations by kind.",
		}, []string{"op"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pooliverse",
			Subsystem: "exchange",
			Name:      "errors_total",
			Help:      "Failed operations by kind.",
		}, []string{"op"}),
		opDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pooliverse",
			Subsystem: "exchange",
			Name:      "op_duration_seconds",
			Help:      "Operation latency by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		eventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pooliverse",
			Subsystem: "exchange",
			Name:      "events_total",
			Help:      "Committed events by name.",
		}, []string{"event"}),
	}
}
