package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"instrumented/pkg/config"
)

// kindFuncCall is the value of the kind label on every per-function metric.
const kindFuncCall = "func_call"

// funcMetrics implements the per-function metric families on a custom
// registry.
//
// Using a custom registry (instead of the global prometheus.DefaultRegisterer)
// provides:
// - Better testability (isolated metrics per test)
// - No metric conflicts when running multiple instances
// - Explicit metric lifecycle management
//
// The registry can be passed to promhttp.HandlerFor() to expose metrics.
type funcMetrics struct {
	registry *prometheus.Registry

	// registerer is the registry wrapped with the configured prefix and
	// constant labels. Everything, user collectors included, registers
	// through it so the whole scrape output is uniformly decorated.
	registerer prometheus.Registerer

	// calls counts function invocations.
	// Labels:
	//   - kind: always "func_call"
	//   - name: function name, Receiver.Func for methods
	//   - ctx: context label from the instrument directive
	calls *prometheus.CounterVec

	// callErrors counts invocations whose final error result was non-nil.
	// Labels: kind, name, ctx, plus
	//   - err: stringified error value
	callErrors *prometheus.CounterVec

	// duration tracks wall-clock call time, instrumentation prologue
	// included.
	// Labels:
	//   - kind, name, ctx
	duration *prometheus.HistogramVec

	// inflight tracks calls that have started and not yet returned.
	// Labels:
	//   - kind, name, ctx
	inflight *prometheus.GaugeVec
}

// options configures a metrics instance. The zero value is a bare registry
// with no prefix and no constant labels.
type options struct {
	prefix string
	labels map[string]string
}

// optionsFromEnv reads the process-wide metrics configuration from
// METRICS_PREFIX and METRICS_LABELS.
func optionsFromEnv() options {
	return options{
		prefix: config.GetEnvString("METRICS_PREFIX", ""),
		labels: config.GetEnvStringMap("METRICS_LABELS", nil),
	}
}

// newFuncMetrics creates a metrics instance with a custom registry.
//
// The prefix (a trailing underscore is appended when missing) and the
// constant labels decorate everything registered through the instance, the
// process and Go runtime collectors included. Registration failures of the
// built-in families panic: a process that cannot record metrics is
// misconfigured beyond repair.
func newFuncMetrics(opts options) *funcMetrics {
	registry := prometheus.NewRegistry()

	var registerer prometheus.Registerer = registry
	if len(opts.labels) > 0 {
		registerer = prometheus.WrapRegistererWith(prometheus.Labels(opts.labels), registerer)
	}
	if prefix := opts.prefix; prefix != "" {
		if !strings.HasSuffix(prefix, "_") {
			prefix += "_"
		}
		registerer = prometheus.WrapRegistererWithPrefix(prefix, registerer)
	}

	calls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "function_called_total",
			Help: "Number of times a function was called",
		},
		[]string{"kind", "name", "ctx"},
	)

	callErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "function_error_total",
			Help: "Number of times the result of a function was an error",
		},
		[]string{"kind", "name", "ctx", "err"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "function_time_seconds",
			Help:    "Histogram of function call times observed",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "name", "ctx"},
	)

	inflight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "function_calls_inflight",
			Help: "Number of function calls currently in flight",
		},
		[]string{"kind", "name", "ctx"},
	)

	registerer.MustRegister(calls, callErrors, duration, inflight)

	// The process and runtime collectors ride along in the same registry
	// so a single scrape covers the whole process.
	registerer.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return &funcMetrics{
		registry:   registry,
		registerer: registerer,
		calls:      calls,
		callErrors: callErrors,
		duration:   duration,
		inflight:   inflight,
	}
}

// RecordCall increments the call counter for one invocation.
func (m *funcMetrics) RecordCall(name, ctx string) {
	m.calls.WithLabelValues(kindFuncCall, name, ctx).Inc()
}

// RecordError increments the error counter for one failed invocation. The
// err label carries the stringified error value.
func (m *funcMetrics) RecordError(name, ctx, err string) {
	m.callErrors.WithLabelValues(kindFuncCall, name, ctx, err).Inc()
}

// StartTimer starts a latency observation. The caller observes it on scope
// exit:
//
//	timer := m.StartTimer("resolveFeed", "default")
//	defer timer.ObserveDuration()
func (m *funcMetrics) StartTimer(name, ctx string) *prometheus.Timer {
	return prometheus.NewTimer(m.duration.WithLabelValues(kindFuncCall, name, ctx))
}

// EnterInflight increments the in-flight gauge when a call starts.
func (m *funcMetrics) EnterInflight(name, ctx string) {
	m.inflight.WithLabelValues(kindFuncCall, name, ctx).Inc()
}

// ExitInflight decrements the in-flight gauge when a call returns.
func (m *funcMetrics) ExitInflight(name, ctx string) {
	m.inflight.WithLabelValues(kindFuncCall, name, ctx).Dec()
}

// Register adds a collector to the registry. The configured prefix and
// constant labels apply to its metrics. Registering a collector that
// duplicates an existing one fails with prometheus.AlreadyRegisteredError.
func (m *funcMetrics) Register(c prometheus.Collector) error {
	return m.registerer.Register(c)
}

// MustRegister adds collectors to the registry and panics on failure.
func (m *funcMetrics) MustRegister(cs ...prometheus.Collector) {
	m.registerer.MustRegister(cs...)
}

// Registry returns the underlying registry, typically to expose it:
//
//	http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
func (m *funcMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// The process-wide instance is created the first time any metric is touched,
// so callers can set METRICS_PREFIX and METRICS_LABELS during startup before
// the first instrumented call.
var (
	stdOnce sync.Once
	std     *funcMetrics
)

func instance() *funcMetrics {
	stdOnce.Do(func() {
		std = newFuncMetrics(optionsFromEnv())
	})
	return std
}

// RecordCall increments the process-wide call counter for the function.
// Generated code calls this on every invocation.
func RecordCall(name, ctx string) {
	instance().RecordCall(name, ctx)
}

// RecordError increments the process-wide error counter for a failed
// invocation.
func RecordError(name, ctx, err string) {
	instance().RecordError(name, ctx, err)
}

// StartTimer starts a latency observation against the process-wide
// histogram.
func StartTimer(name, ctx string) *prometheus.Timer {
	return instance().StartTimer(name, ctx)
}

// EnterInflight increments the process-wide in-flight gauge.
func EnterInflight(name, ctx string) {
	instance().EnterInflight(name, ctx)
}

// ExitInflight decrements the process-wide in-flight gauge.
func ExitInflight(name, ctx string) {
	instance().ExitInflight(name, ctx)
}

// Register adds a collector to the process-wide registry. The configured
// prefix and constant labels apply.
func Register(c prometheus.Collector) error {
	return instance().Register(c)
}

// MustRegister adds collectors to the process-wide registry and panics on
// failure.
func MustRegister(cs ...prometheus.Collector) {
	instance().MustRegister(cs...)
}

// Registry returns the process-wide registry for exposition.
func Registry() *prometheus.Registry {
	return instance().Registry()
}
