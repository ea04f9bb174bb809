// Package logging provides structured logging utilities with context
// propagation.
//
// This package wraps the standard library's log/slog package with helper
// functions for the logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "instrumented/internal/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    slog.SetDefault(logger)
//	    logger.Info("demo started", slog.String("version", "1.0"))
//	}
//
//	func runJob(ctx context.Context) {
//	    logger := logging.FromContext(ctx)
//	    logger.Info("job running")
//	}
package logging
