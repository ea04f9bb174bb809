package instrumented

import (
	"github.com/prometheus/client_golang/prometheus"

	"instrumented/pkg/exporter"
	"instrumented/pkg/metrics"
)

// Init starts the metrics exporter on addr and returns immediately. The
// exporter serves the process-wide registry at /metrics and answers every
// other path with 404. Init exits the process when addr cannot be bound.
func Init(addr string) {
	exporter.Start(addr)
}

// Register adds a custom collector to the process-wide registry, so its
// metrics appear on the same scrape endpoint as the function metrics. The
// registry prefix and default labels apply to the collector as well.
func Register(c prometheus.Collector) error {
	return metrics.Register(c)
}

// MustRegister adds custom collectors to the process-wide registry and
// panics on registration errors.
func MustRegister(cs ...prometheus.Collector) {
	metrics.MustRegister(cs...)
}
