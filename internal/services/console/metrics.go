package console

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// Metrics raccoglie i contatori della console su un registry privato.
type Metrics struct {
	Registry *prometheus.Registry

	polls        *prometheus.CounterVec
	pollDuration prometheus.Histogram
	lastSuccess  prometheus.Gauge
	dispatches   *prometheus.CounterVec
	sinkErrors   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_polls_total",
			Help: "Poll cycles by result (ok, error).",
		}, []string{"result"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "console_poll_duration_seconds",
			Help:    "Duration of GET /poll, decode included.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_last_poll_success_timestamp_seconds",
			Help: "Unix time of the last snapshot rendered.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_commands_total",
			Help: "Commands dispatched by kind and result.",
		}, []string{"kind", "result"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_sink_errors_total",
			Help: "Errors returned by snapshot sinks.",
		}, []string{"sink"}),
	}
	m.Registry.MustRegister(m.polls, m.pollDuration, m.lastSuccess, m.dispatches, m.sinkErrors)
	return m
}

// ObservePoll è nil-safe: senza Metrics il poller funziona lo stesso.
func (m *Metrics) ObservePoll(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.pollDuration.Observe(d.Seconds())
	if err != nil {
		m.polls.WithLabelValues(resultError).Inc()
		return
	}
	m.polls.WithLabelValues(resultOK).Inc()
	m.lastSuccess.Set(float64(time.Now().Unix()))
}

func (m *Metrics) ObserveDispatch(kind string, err error) {
	if m == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.dispatches.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveSinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}
