package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ticks          *prometheus.CounterVec
	tickDuration   prometheus.Histogram
	runsProcessed  *prometheus.CounterVec
	nodeExecutions *prometheus.CounterVec
	enrollments    prometheus.Counter
	reportRuns     *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_scheduler_ticks_total",
				Help: "Scheduler ticks by outcome.",
			},
			[]string{"outcome"},
		),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "journey_scheduler_tick_duration_seconds",
			Help:    "Wall time of one scheduler tick.",
			Buckets: prometheus.DefBuckets,
		}),
		runsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_runs_processed_total",
				Help: "Run steps processed by resulting status.",
			},
			[]string{"status"},
		),
		nodeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_node_executions_total",
				Help: "Node executions by node type and result.",
			},
			[]string{"type", "result"},
		),
		enrollments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_enrollments_total",
			Help: "Runs created by enrollment.",
		}),
		reportRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_runs_total",
				Help: "Report executions by report type.",
			},
			[]string{"type"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total requests by route, method and status.",
			},
			[]string{"route", "method", "status"},
		),
	}

	m.registry.MustRegister(
		m.ticks,
		m.tickDuration,
		m.runsProcessed,
		m.nodeExecutions,
		m.enrollments,
		m.reportRuns,
		m.httpRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Tick(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(outcome).Inc()
	m.tickDuration.Observe(took.Seconds())
}

func (m *Metrics) RunProcessed(status string) {
	if m == nil {
		return
	}
	m.runsProcessed.WithLabelValues(status).Inc()
}

func (m *Metrics) NodeExecuted(nodeType, result string) {
	if m == nil {
		return
	}
	m.nodeExecutions.WithLabelValues(nodeType, result).Inc()
}

func (m *Metrics) Enrolled(n int) {
	if m == nil {
		return
	}
	m.enrollments.Add(float64(n))
}

func (m *Metrics) ReportRun(reportType string) {
	if m == nil {
		return
	}
	m.reportRuns.WithLabelValues(reportType).Inc()
}

func (m *Metrics) HTTPRequest(route, method, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
}
