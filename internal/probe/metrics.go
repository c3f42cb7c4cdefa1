package probe

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts verdicts and times steps in a private registry so a run can
// be exported as a node-exporter textfile. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry
	results  *prometheus.CounterVec
	steps    *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "accountcheck",
				Name:      "probe_results_total",
				Help:      "Checklist results by verdict.",
			},
			[]string{"suite", "verdict"},
		),
		steps: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "accountcheck",
				Name:      "step_duration_seconds",
				Help:      "Wall-clock duration of each checklist step.",
			},
			[]string{"suite", "step"},
		),
	}
	m.registry.MustRegister(m.results, m.steps)
	return m
}

func (m *Metrics) observeResult(suite string, v Verdict) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(suite, string(v)).Inc()
}

func (m *Metrics) observeStep(suite, step string, d time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(suite, step).Set(d.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes every metric to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
