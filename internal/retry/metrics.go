package retry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds retry metrics. A nil *Metrics records nothing.
type Metrics struct {
	attemptsTotal *prometheus.CounterVec
	successTotal  *prometheus.CounterVec
	failureTotal  *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	waitDuration  *prometheus.HistogramVec
}

// NewMetrics creates retry metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Total number of attempts, including the first",
			},
			[]string{"operation"},
		),
		successTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_success_total",
				Help:      "Total number of operations that eventually succeeded",
			},
			[]string{"operation"},
		),
		failureTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_failure_total",
				Help:      "Total number of operations that failed after all retries",
			},
			[]string{"operation"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retry_duration_seconds",
				Help:      "Total duration of retried operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		),
		waitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retry_backoff_duration_seconds",
				Help:      "Duration of backoff waits in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.attemptsTotal, m.successTotal, m.failureTotal, m.duration, m.waitDuration)
	}

	return m
}

func (m *Metrics) recordAttempt(operation string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) recordWait(operation string, wait time.Duration) {
	if m == nil {
		return
	}
	m.waitDuration.WithLabelValues(operation).Observe(wait.Seconds())
}

func (m *Metrics) recordResult(operation string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}

	result := "success"
	if success {
		m.successTotal.WithLabelValues(operation).Inc()
	} else {
		result = "failure"
		m.failureTotal.WithLabelValues(operation).Inc()
	}
	m.duration.WithLabelValues(operation, result).Observe(elapsed.Seconds())
}
