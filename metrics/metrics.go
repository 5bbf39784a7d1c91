package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "osmextract"

// ExtractMetrics holds the statistics of extraction runs. Each instance has its own registry, so several runs (e.g.
// in tests) don't interfere with each other.
type ExtractMetrics struct {
	Registry        *prometheus.Registry
	EntitiesRead    *prometheus.CounterVec
	EntitiesWritten *prometheus.CounterVec
	OrderViolations prometheus.Counter
	FilterSize      *prometheus.GaugeVec
}

func NewExtractMetrics() *ExtractMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &ExtractMetrics{
		Registry: registry,
		EntitiesRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entities_read_total",
				Help:      "Total number of OSM objects read from the input",
			},
			[]string{"type"},
		),
		EntitiesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entities_written_total",
				Help:      "Total number of OSM objects written into a region",
			},
			[]string{"region", "type"},
		),
		OrderViolations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_violations_total",
				Help:      "Number of passes aborted because of unordered input data",
			},
		),
		FilterSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "filter_approximated_ids",
				Help:      "Approximated number of IDs stored in the membership filters at the end of a pass",
			},
			[]string{"filter"},
		),
	}
}

// WriteTextfile stores the current values in the text format of the node exporters textfile collector.
func (m *ExtractMetrics) WriteTextfile(filename string) error {
	err := prometheus.WriteToTextfile(filename, m.Registry)
	if err != nil {
		return errors.Wrapf(err, "Unable to write metrics to file %s", filename)
	}
	return nil
}
