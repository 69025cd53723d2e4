package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	pollAttempts    *prometheus.CounterVec
	jobOutcomes     *prometheus.CounterVec
	jobAttempts     *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forge3d",
			Subsystem: "worker",
			Name:      "job_process_total",
			Help:      "Total processed generation jobs by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "forge3d",
			Subsystem: "worker",
			Name:      "job_process_duration_seconds",
			Help:      "Generation job processing duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "forge3d",
			Subsystem: "worker",
			Name:      "job_process_in_flight",
			Help:      "Number of in-flight generation jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "forge3d",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between job creation and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	pollAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forge3d",
			Subsystem: "poller",
			Name:      "attempts_total",
			Help:      "Non-terminal status checks by provider.",
		},
		[]string{"service", "provider", "transient"},
	)
	jobOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forge3d",
			Subsystem: "poller",
			Name:      "outcomes_total",
			Help:      "Terminal job states by provider.",
		},
		[]string{"service", "provider", "status"},
	)
	jobAttempts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "forge3d",
			Subsystem: "poller",
			Name:      "attempts_per_job",
			Help:      "Status checks spent per finished job.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 30, 50},
		},
		[]string{"service", "provider"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, pollAttempts, jobOutcomes, jobAttempts)

	return &WorkerMetrics{
		service:         service,
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		pollAttempts:    pollAttempts,
		jobOutcomes:     jobOutcomes,
		jobAttempts:     jobAttempts,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObservePollAttempt(provider string, transient bool) {
	m.pollAttempts.WithLabelValues(m.service, provider, strconv.FormatBool(transient)).Inc()
}

func (m *WorkerMetrics) ObserveJobOutcome(provider string, status domain.JobStatus, attempts int) {
	m.jobOutcomes.WithLabelValues(m.service, provider, string(status)).Inc()
	if attempts > 0 {
		m.jobAttempts.WithLabelValues(m.service, provider).Observe(float64(attempts))
	}
}
