// Package metrics exposes dashboard activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "penguindash"

// Recorder owns a private registry. It implements core.Observer and is safe
// for concurrent use by every session.
type Recorder struct {
	registry       *prometheus.Registry
	controlEvents  *prometheus.CounterVec
	recomputations prometheus.Counter
	viewRows       prometheus.Histogram
	recomputeTime  prometheus.Histogram
	exports        *prometheus.CounterVec
	requests       *prometheus.CounterVec
}

// New builds a recorder with Go runtime and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		controlEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_events_total",
			Help:      "Committed control change events by control.",
		}, []string{"control"}),
		recomputations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_recomputations_total",
			Help:      "Filtered view recomputations.",
		}),
		viewRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_rows",
			Help:      "Rows in each recomputed filtered view.",
			Buckets:   []float64{0, 10, 50, 100, 200, 350},
		}),
		recomputeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_recompute_seconds",
			Help:      "Time spent deriving a filtered view.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Finished exports by terminal status.",
		}, []string{"status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	r.registry.MustRegister(
		r.controlEvents, r.recomputations, r.viewRows, r.recomputeTime, r.exports, r.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ControlChanged counts one committed control event.
func (r *Recorder) ControlChanged(control string) {
	r.controlEvents.WithLabelValues(control).Inc()
}

// ViewComputed records a recomputation of size rows taking elapsed.
func (r *Recorder) ViewComputed(size int, elapsed time.Duration) {
	r.recomputations.Inc()
	r.viewRows.Observe(float64(size))
	r.recomputeTime.Observe(elapsed.Seconds())
}

// ExportFinished counts an export reaching status.
func (r *Recorder) ExportFinished(status string) {
	r.exports.WithLabelValues(status).Inc()
}

// ObserveRequest counts one HTTP response.
func (r *Recorder) ObserveRequest(route string, code int) {
	r.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// TrackSessions publishes the live session count reported by fn.
func (r *Recorder) TrackSessions(fn func() int) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Live dashboard sessions.",
	}, func() float64 { return float64(fn()) }))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
