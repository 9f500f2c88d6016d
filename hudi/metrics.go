package hudi

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what a Consumer did. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	BatchesReceived    prometheus.Counter
	BatchesReleased    prometheus.Counter
	BatchesUnsupported *prometheus.CounterVec
	ValuesRendered     prometheus.Counter
	ReadFailures       prometheus.Counter
}

// NewMetrics creates the counters on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BatchesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hudi_batches_received_total",
			Help: "Record batches returned by read_file_slice.",
		}),
		BatchesReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hudi_batches_released_total",
			Help: "Record batches released by the consumer.",
		}),
		BatchesUnsupported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hudi_batches_unsupported_total",
			Help: "Record batches whose format tag the consumer cannot render.",
		}, []string{"format"}),
		ValuesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hudi_values_rendered_total",
			Help: "Int32 values printed by the consumer.",
		}),
		ReadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hudi_read_failures_total",
			Help: "Failed read_file_slice calls.",
		}),
	}
	m.registry.MustRegister(
		m.BatchesReceived,
		m.BatchesReleased,
		m.BatchesUnsupported,
		m.ValuesRendered,
		m.ReadFailures,
	)
	return m
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}

func (m *Metrics) received(n int) {
	if m != nil {
		m.BatchesReceived.Add(float64(n))
	}
}

func (m *Metrics) released() {
	if m != nil {
		m.BatchesReleased.Inc()
	}
}

func (m *Metrics) unsupported(format string) {
	if m != nil {
		m.BatchesUnsupported.WithLabelValues(format).Inc()
	}
}

func (m *Metrics) rendered(n int) {
	if m != nil {
		m.ValuesRendered.Add(float64(n))
	}
}

func (m *Metrics) readFailed() {
	if m != nil {
		m.ReadFailures.Inc()
	}
}
