// Package metrics exposes Prometheus instruments for the API and pipelines.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ingestions      *prometheus.CounterVec
	chunksIndexed   *prometheus.CounterVec
	chats           *prometheus.CounterVec
	documentsFound  prometheus.Histogram

	registry *prometheus.Registry
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "notebookllm"
	}
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	m.ingestions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Document ingestions by kind and result",
		},
		[]string{"kind", "result"},
	)
	m.chunksIndexed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks written to the vector store",
		},
		[]string{"kind"},
	)
	m.chats = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by result",
		},
		[]string{"result"},
	)
	m.documentsFound = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_documents_found",
			Help:      "Chunks retrieved per answered chat request",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.ingestions,
		m.chunksIndexed,
		m.chats,
		m.documentsFound,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveIngest records one ingestion. result is "ok" or an error kind.
func (m *Metrics) ObserveIngest(kind, result string, chunks int) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(kind, result).Inc()
	if chunks > 0 {
		m.chunksIndexed.WithLabelValues(kind).Add(float64(chunks))
	}
}

func (m *Metrics) ObserveChat(result string, documentsFound int) {
	if m == nil {
		return
	}
	m.chats.WithLabelValues(result).Inc()
	if result == "ok" {
		m.documentsFound.Observe(float64(documentsFound))
	}
}

// Middleware records count and latency under a fixed route label so path
// parameters do not explode label cardinality.
func (m *Metrics) Middleware(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		method := methodLabel(r.Method)
		m.requestsTotal.WithLabelValues(method, route, statusClass(rec.status)).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// methodLabel folds anything outside the standard methods into "other".
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
