// Package metrics exposes Prometheus metrics for the HTTP layer, the
// journal and the story.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/present"
)

const namespace = "ithaca"

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	events       *prometheus.CounterVec
	entryChanges *prometheus.CounterVec
}

var _ present.Sink = (*Metrics)(nil)

// New creates the collectors and registers them with Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),

		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),

		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presentation_events_total",
			Help:      "Presentation events by type.",
		}, []string{"type"}),

		entryChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_changes_total",
			Help:      "Journal entry changes by kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.events, m.entryChanges,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Emit counts a presentation event.
func (m *Metrics) Emit(e present.Event) {
	m.events.WithLabelValues(string(e.Kind)).Inc()
}

// ObserveEntry counts a journal change.
func (m *Metrics) ObserveEntry(kind, _ string) {
	m.entryChanges.WithLabelValues(kind).Inc()
}

// TrackClients exports count as the number of connected event streams.
func (m *Metrics) TrackClients(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sse_clients",
		Help:      "Connected SSE clients.",
	}, func() float64 { return float64(count()) }))
}

// ProgressFunc reads the current progress state.
type ProgressFunc func(ctx context.Context) (models.UserState, error)

// TrackProgress exports the day, word total and fragment count, read once
// per scrape.
func (m *Metrics) TrackProgress(read ProgressFunc) {
	m.registry.MustRegister(&progressCollector{read: read})
}

var (
	dayDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "story", "day"),
		"Current in-game day.", nil, nil)
	wordsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "journal", "words"),
		"Total confirmed word count.", nil, nil)
	fragmentsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "story", "fragments_unlocked"),
		"Unlocked story fragments.", nil, nil)
)

type progressCollector struct {
	read ProgressFunc
}

func (c *progressCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- dayDesc
	ch <- wordsDesc
	ch <- fragmentsDesc
}

func (c *progressCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := c.read(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(dayDesc, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(dayDesc, prometheus.GaugeValue, float64(st.Day))
	ch <- prometheus.MustNewConstMetric(wordsDesc, prometheus.GaugeValue, float64(st.TotalWords))
	ch <- prometheus.MustNewConstMetric(fragmentsDesc, prometheus.GaugeValue, float64(len(st.UnlockedFragments)))
}

// Middleware records request counts and latency labelled with the matched
// chi route pattern, so ids in paths do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
