// Package metrics exposes request and snapshot metrics for Prometheus.
//
// Registers:
//
//	#airbnbdash_http_requests_total
//	#airbnbdash_http_request_duration_seconds
//	#airbnbdash_listings_loaded / airbnbdash_listings_skipped
//	#airbnbdash_active_sessions
//	#go_* and process_* system metrics
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "airbnbdash"

type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	loaded   prometheus.Gauge
	skipped  prometheus.Gauge
}

// New builds a private registry so several servers (or tests) can coexist
// in one process.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listings_loaded",
			Help:      "Listings in the in-memory snapshot",
		}),
		skipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listings_skipped",
			Help:      "Rows rejected while building the snapshot",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.loaded,
		m.skipped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SetSnapshot records the size of the loaded listing snapshot.
func (m *Metrics) SetSnapshot(loaded, skipped int) {
	m.loaded.Set(float64(loaded))
	m.skipped.Set(float64(skipped))
}

// TrackSessions reports the live session count on every scrape.
func (m *Metrics) TrackSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Browsing sessions currently held in memory",
		},
		func() float64 { return float64(count()) },
	))
}

// Middleware counts requests by route template, not raw path, to keep
// label cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
