// Package metrics expone los contadores Prometheus del servicio: latencia HTTP,
// fetches de los loaders por petición y conflictos de facturación.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tiempo"

var histogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// Metrics agrupa los collectors registrados en un registry propio.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal     *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	loaderFetches    *prometheus.CounterVec
	loaderKeys       *prometheus.HistogramVec
	billingConflicts *prometheus.CounterVec
}

// New registra los collectors (más los de proceso y runtime de Go).
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
		loaderFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "fetches_total",
			Help:      "Batched fetches issued by request loaders",
		}, []string{"loader"}),
		loaderKeys: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "batch_keys",
			Help:      "Number of keys per loader fetch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"loader"}),
		billingConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "conflicts_total",
			Help:      "Invoice mutations rejected with a conflict",
		}, []string{"code"}),
	}
	m.registry.MustRegister(
		m.requestTotal, m.requestLatency,
		m.loaderFetches, m.loaderKeys,
		m.billingConflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest registra una petición HTTP. route es el patrón, no la URL.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	labels := prometheus.Labels{"method": method, "route": route, "status": strconv.Itoa(status)}
	m.requestTotal.With(labels).Inc()
	m.requestLatency.With(labels).Observe(d.Seconds())
}

// LoaderFetch es el hook loader.Config.OnFetch.
func (m *Metrics) LoaderFetch(name string, keys int) {
	m.loaderFetches.WithLabelValues(name).Inc()
	m.loaderKeys.WithLabelValues(name).Observe(float64(keys))
}

// BillingConflict es el hook billing.WithConflictHook.
func (m *Metrics) BillingConflict(code string) {
	m.billingConflicts.WithLabelValues(code).Inc()
}

// Handler sirve el registry en formato de exposición Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer expone el registry (pruebas).
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }
