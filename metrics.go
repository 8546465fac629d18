package relay

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "lnd_relay"

// prometheusMetrics is the default MetricsRecorder, backed by a counter
// and a histogram registered under the lnd_relay namespace. It satisfies
// §4.6: a relay-failure counter tagged by failure class, and a relay
// duration histogram tagged by success/failure and relay type.
type prometheusMetrics struct {
	failureCounter   *prometheus.CounterVec
	durationHistogram *prometheus.HistogramVec
}

var (
	metricsOnce    sync.Once
	metricsDefault *prometheusMetrics
)

// NewPrometheusMetrics constructs a MetricsRecorder and registers its
// collectors with reg. Safe to call more than once in tests against
// independent registries.
func NewPrometheusMetrics(reg prometheus.Registerer) MetricsRecorder {
	m := &prometheusMetrics{
		failureCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "relay_failures_total",
				Help:      "Total number of relay failures by failure class.",
			},
			[]string{"failure_class"},
		),
		durationHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "relay_duration_seconds",
				Help:      "Duration of relayed payments in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"relay_type", "success"},
		),
	}

	reg.MustRegister(m.failureCounter, m.durationHistogram)

	return m
}

// ObserveRelayOutcome implements MetricsRecorder.
func (m *prometheusMetrics) ObserveRelayOutcome(relayType string, success bool, durationSeconds float64) {
	m.durationHistogram.WithLabelValues(relayType, boolLabel(success)).Observe(durationSeconds)
}

// IncFailure implements MetricsRecorder.
func (m *prometheusMetrics) IncFailure(class string) {
	m.failureCounter.WithLabelValues(class).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}

	return "false"
}

// DefaultMetrics returns a process-wide MetricsRecorder registered against
// the global prometheus registry, constructed once on first use.
func DefaultMetrics() MetricsRecorder {
	metricsOnce.Do(func() {
		metricsDefault = NewPrometheusMetrics(prometheus.DefaultRegisterer).(*prometheusMetrics)
	})

	return metricsDefault
}

// noopMetrics discards every observation; useful as a MetricsRecorder for
// tests that don't care about telemetry.
type noopMetrics struct{}

// ObserveRelayOutcome implements MetricsRecorder.
func (noopMetrics) ObserveRelayOutcome(string, bool, float64) {}

// IncFailure implements MetricsRecorder.
func (noopMetrics) IncFailure(string) {}

// NoopMetrics returns a MetricsRecorder that discards every observation.
func NoopMetrics() MetricsRecorder {
	return noopMetrics{}
}
