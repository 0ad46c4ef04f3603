package http

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded by Metrics.
const (
	OutcomeSuccess      = "success"
	OutcomeUnauthorized = "unauthorized"
	OutcomeExhausted    = "exhausted"
	OutcomeCanceled     = "canceled"
)

// Metrics holds the Prometheus collectors for the request layer.
// A nil *Metrics records nothing.
type Metrics struct {
	Attempts  *prometheus.CounterVec
	Requests  *prometheus.CounterVec
	RetryWait prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// If reg is nil the collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redmine",
				Subsystem: "http",
				Name:      "attempts_total",
				Help:      "Total number of HTTP attempts sent, by method and response code.",
			},
			[]string{"method", "code"},
		),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redmine",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of logical requests, by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		RetryWait: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "redmine",
				Subsystem: "http",
				Name:      "retry_wait_seconds_total",
				Help:      "Total time spent waiting between retry attempts.",
			},
		),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Attempts, m.Requests, m.RetryWait} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// observeAttempt records one attempt. code is 0 for transport errors.
func (m *Metrics) observeAttempt(method string, code int) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.Attempts.WithLabelValues(method, label).Inc()
}

func (m *Metrics) observeOutcome(method, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) observeWait(d time.Duration) {
	if m == nil {
		return
	}
	m.RetryWait.Add(d.Seconds())
}
