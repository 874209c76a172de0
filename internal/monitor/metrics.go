package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 汇总定投执行相关的 prometheus 指标。nil 接收者上的方法均为空操作。
type Metrics struct {
	batches     *prometheus.CounterVec
	jobs        *prometheus.CounterVec
	jobDuration prometheus.Histogram
	orders      *prometheus.CounterVec
	auth        *prometheus.CounterVec
	lastBatch   prometheus.Gauge
}

// NewMetrics 创建并注册指标，reg 为空时使用默认注册表。
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_runs_total",
				Help:      "Total number of unattended batch runs",
			},
			[]string{"outcome"},
		),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_executions_total",
				Help:      "Total number of DCA job executions",
			},
			[]string{"status"},
		),
		jobDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_execution_duration_seconds",
				Help:      "Duration of DCA job executions",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60},
			},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_placed_total",
				Help:      "Total number of manually placed orders",
			},
			[]string{"side"},
		),
		auth: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_transitions_total",
				Help:      "Total number of auth session transitions",
			},
			[]string{"state"},
		),
		lastBatch: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_batch_timestamp_seconds",
				Help:      "Unix time of the last unattended batch run",
			},
		),
	}

	reg.MustRegister(m.batches, m.jobs, m.jobDuration, m.orders, m.auth, m.lastBatch)
	return m
}

func (m *Metrics) observeBatch(outcome BatchOutcome) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(string(outcome)).Inc()
	m.lastBatch.SetToCurrentTime()
}

func (m *Metrics) observeJob(success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.jobs.WithLabelValues(status).Inc()
	m.jobDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeOrder(side string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(side).Inc()
}

func (m *Metrics) observeAuth(state string) {
	if m == nil {
		return
	}
	m.auth.WithLabelValues(state).Inc()
}
