// Package metrics provides the Prometheus runtime behind instrumented
// functions.
//
// This package centralizes the per-function metric families:
//   - function_called_total: invocations by function and context
//   - function_error_total: failed invocations by function, context and error
//   - function_time_seconds: call latency histograms
//   - function_calls_inflight: calls started and not yet returned
//
// All families live in one process-wide registry created on first use and
// exposed by the exporter package. The registry is configured through
// environment variables read at creation time:
//   - METRICS_PREFIX: prefix prepended to every metric name
//   - METRICS_LABELS: comma-separated key=value pairs attached to every
//     metric; malformed pairs are dropped
//
// Example usage:
//
//	import "instrumented/pkg/metrics"
//
//	func resolveFeed(id string) {
//	    metrics.RecordCall("resolveFeed", "default")
//	    timer := metrics.StartTimer("resolveFeed", "default")
//	    defer timer.ObserveDuration()
//	    // ... resolve the feed ...
//	}
//
// Generated code emits exactly this pattern; the package is public so
// hand-written code can record into the same families.
package metrics
