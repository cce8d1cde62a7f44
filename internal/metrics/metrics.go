package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the fruitjar Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fruitjar",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fruitjar",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fruitjar",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route"},
	)

	jarTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fruitjar",
			Subsystem: "jar",
			Name:      "transitions_total",
			Help:      "Total number of applied jar history transitions.",
		},
		[]string{"op"},
	)

	jarItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fruitjar",
			Subsystem: "jar",
			Name:      "items",
			Help:      "Number of fruits in the current jar.",
		},
	)

	jarHistoryDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fruitjar",
			Subsystem: "jar",
			Name:      "history_snapshots",
			Help:      "Number of snapshots kept in the jar history.",
		},
	)

	catalogLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fruitjar",
			Subsystem: "catalog",
			Name:      "loads_total",
			Help:      "Total number of catalog loads by origin.",
		},
		[]string{"origin"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		jarTransitions,
		jarItems,
		jarHistoryDepth,
		catalogLoads,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Requests are labelled by the ServeMux pattern that handled them.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordTransition records one applied jar transition and the resulting jar
// and history sizes.
func RecordTransition(op string, items, snapshots int) {
	if op == "" {
		op = "unknown"
	}
	jarTransitions.WithLabelValues(op).Inc()
	jarItems.Set(float64(items))
	jarHistoryDepth.Set(float64(snapshots))
}

// RecordCatalogLoad counts a catalog load by where the catalog came from.
func RecordCatalogLoad(origin string) {
	catalogLoads.WithLabelValues(origin).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
