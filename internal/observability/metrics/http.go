package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rateLimited     *prometheus.CounterVec

	generationsCreated *prometheus.CounterVec
	meshAnalyses       *prometheus.CounterVec
	meshVertices       *prometheus.HistogramVec
	llmRequests        *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forge3d",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "forge3d",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "forge3d",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rateLimited := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forge3d",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by traffic control.",
		},
		[]string{"service", "reason"},
	)
	generationsCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forge3d",
			Subsystem: "generation",
			Name:      "created_total",
			Help:      "Generation jobs accepted by provider and kind.",
		},
		[]string{"service", "provider", "kind"},
	)
	meshAnalyses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forge3d",
			Subsystem: "mesh",
			Name:      "analyses_total",
			Help:      "Mesh analyses by operation and status.",
		},
		[]string{"service", "operation", "status"},
	)
	meshVertices := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "forge3d",
			Subsystem: "mesh",
			Name:      "vertices",
			Help:      "Distribution of vertex counts in analysed meshes.",
			Buckets:   prometheus.ExponentialBuckets(8, 4, 10),
		},
		[]string{"service"},
	)
	llmRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forge3d",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Text generation requests by operation and status.",
		},
		[]string{"service", "operation", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rateLimited,
		generationsCreated,
		meshAnalyses,
		meshVertices,
		llmRequests,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		rateLimited:        rateLimited,
		generationsCreated: generationsCreated,
		meshAnalyses:       meshAnalyses,
		meshVertices:       meshVertices,
		llmRequests:        llmRequests,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses job ids so the path label stays bounded.
func normalizePath(path string) string {
	rest, ok := strings.CutPrefix(path, "/v1/generations/")
	if !ok || rest == "" {
		return path
	}
	if strings.HasSuffix(rest, "/stats") {
		return "/v1/generations/{id}/stats"
	}
	return "/v1/generations/{id}"
}

func (m *HTTPServerMetrics) RecordRateLimited(service, reason string) {
	m.rateLimited.WithLabelValues(service, reason).Inc()
}

func (m *HTTPServerMetrics) RecordGenerationCreated(service, provider, kind string) {
	if provider == "" {
		provider = "unknown"
	}
	m.generationsCreated.WithLabelValues(service, provider, kind).Inc()
}

func (m *HTTPServerMetrics) RecordMeshAnalysis(service, operation string, vertices int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.meshAnalyses.WithLabelValues(service, operation, status).Inc()
	if err == nil {
		m.meshVertices.WithLabelValues(service).Observe(float64(vertices))
	}
}

func (m *HTTPServerMetrics) RecordLLMRequest(service, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.llmRequests.WithLabelValues(service, operation, status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
