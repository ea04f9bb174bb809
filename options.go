package instrumented

import "log/slog"

// Option configures a single observed call or a wrapper.
type Option func(*settings)

// settings mirrors the option surface of the instrument directive: a
// context label, optional per-outcome log levels, a message format and the
// logging and tracing sinks.
type settings struct {
	ctx      string
	okLevel  *slog.Level
	errLevel *slog.Level
	format   string
	logger   *slog.Logger
	tracing  bool
}

func newSettings(opts []Option) settings {
	s := settings{ctx: "default"}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithContextLabel sets the ctx label recorded on every metric of the
// call. The default label is "default".
func WithContextLabel(label string) Option {
	return func(s *settings) { s.ctx = label }
}

// WithLevel logs both outcomes at the given level. Without any level
// option the call is measured but not logged.
func WithLevel(level slog.Level) Option {
	return func(s *settings) {
		s.okLevel = &level
		s.errLevel = &level
	}
}

// WithOKLevel logs successful calls at the given level.
func WithOKLevel(level slog.Level) Option {
	return func(s *settings) { s.okLevel = &level }
}

// WithErrLevel logs failed calls at the given level.
func WithErrLevel(level slog.Level) Option {
	return func(s *settings) { s.errLevel = &level }
}

// WithFormat sets the log message format. The format must contain one %v
// verb, replaced by the returned value on success or by the error on
// failure. The default format is "<name>() => %v".
func WithFormat(format string) Option {
	return func(s *settings) { s.format = format }
}

// WithLogger routes outcome logs to the given logger instead of
// slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithTracing opens an OpenTelemetry span around every observed call and
// records the error on the span when the call fails.
func WithTracing() Option {
	return func(s *settings) { s.tracing = true }
}
