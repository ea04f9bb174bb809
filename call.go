package instrumented

import (
	"context"
	"fmt"
	"log/slog"

	"instrumented/pkg/metrics"
)

// Run observes a single invocation of a function with no results.
func Run(name string, fn func(), opts ...Option) {
	_, _ = observe(name, newSettings(opts), false, func() (struct{}, error) {
		fn()
		return struct{}{}, nil
	})
}

// Do observes a single invocation of a function returning only an error.
// The error is returned unchanged.
func Do(name string, fn func() error, opts ...Option) error {
	_, err := observe(name, newSettings(opts), false, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Value observes a single invocation of a function returning a value.
func Value[T any](name string, fn func() T, opts ...Option) T {
	ret, _ := observe(name, newSettings(opts), true, func() (T, error) {
		return fn(), nil
	})
	return ret
}

// Call observes a single invocation of a fallible function. The result and
// the error are returned unchanged.
func Call[T any](name string, fn func() (T, error), opts ...Option) (T, error) {
	return observe(name, newSettings(opts), true, fn)
}

// observe is the shared measurement core behind every decorator. It records
// the same hooks the source transformer emits: call counter and in-flight
// gauge on entry, the latency timer observed on scope exit, error counter
// and the optional outcome log on the way out. The in-flight and timer
// hooks are deferred so the gauge drains even when fn panics. logValue
// selects the success log value: the returned value, or the literal "ok"
// for functions with nothing to show.
func observe[T any](name string, s settings, logValue bool, fn func() (T, error)) (T, error) {
	metrics.RecordCall(name, s.ctx)
	metrics.EnterInflight(name, s.ctx)
	defer metrics.ExitInflight(name, s.ctx)
	timer := metrics.StartTimer(name, s.ctx)
	defer timer.ObserveDuration()

	var (
		ret T
		err error
	)
	if s.tracing {
		end := startSpan(name, s.ctx)
		defer func() { end(err) }()
	}

	ret, err = fn()
	if err != nil {
		s.log(s.errLevel, name, err)
		metrics.RecordError(name, s.ctx, err.Error())
		return ret, err
	}

	value := any("ok")
	if logValue {
		value = ret
	}
	s.log(s.okLevel, name, value)
	return ret, nil
}

// log emits one outcome line when the path has a level configured.
func (s settings) log(level *slog.Level, name string, value any) {
	if level == nil {
		return
	}
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	format := s.format
	if format == "" {
		format = name + "() => %v"
	}
	logger.Log(context.Background(), *level, fmt.Sprintf(format, value))
}
