package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records engine operation activity for Prometheus scraping.
type EngineMetrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	floorPrice prometheus.Gauge
	spotPrice  prometheus.Gauge
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Engine returns the lazily-initialised engine metrics registry.
func Engine() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "parbond",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total engine operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "parbond",
				Subsystem: "engine",
				Name:      "errors_total",
				Help:      "Total engine operation failures segmented by operation.",
			}, []string{"operation"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "parbond",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for engine operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			floorPrice: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "parbond",
				Subsystem: "engine",
				Name:      "floor_price_ppm",
				Help:      "Current floor price in parts per million.",
			}),
			spotPrice: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "parbond",
				Subsystem: "engine",
				Name:      "spot_price_ppm",
				Help:      "Current reserve-ratio spot price in parts per million.",
			}),
		}
		prometheus.MustRegister(
			engineRegistry.operations,
			engineRegistry.errors,
			engineRegistry.latency,
			engineRegistry.floorPrice,
			engineRegistry.spotPrice,
		)
	})
	return engineRegistry
}

// Observe records one operation outcome with its duration.
func (m *EngineMetrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(operation).Inc()
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// SetPrices publishes the current floor and spot prices.
func (m *EngineMetrics) SetPrices(floorPpm uint64, spotPpm float64) {
	if m == nil {
		return
	}
	m.floorPrice.Set(float64(floorPpm))
	m.spotPrice.Set(spotPpm)
}
