// Package instrumented provides function-level Prometheus instrumentation:
// call counts, error counts, latency histograms and an in-flight gauge,
// recorded without the function's callers changing.
//
// There are two ways in. The instrument tool rewrites annotated source at
// build time:
//
//	//go:generate go run instrumented/cmd/instrument -o work_gen.go work.go
//
//	// resolveFeed resolves the upstream feed URL for id.
//	//instrument:INFO ctx=feeds
//	func resolveFeed(id string) (string, error) { ... }
//
// And the decorators wrap ordinary functions at run time:
//
//	url, err := instrumented.Call("resolveFeed", func() (string, error) {
//	    return resolveFeed(id)
//	}, instrumented.WithLevel(slog.LevelInfo))
//
// Both paths record into the same process-wide registry, which Init exposes
// as an HTTP scrape target:
//
//	instrumented.Init("127.0.0.1:5000")
//
// # Configuring
//
// The registry reads two environment variables when it is first touched.
// METRICS_PREFIX prepends a prefix to every metric name, and METRICS_LABELS
// attaches default labels parsed from a comma-separated list of key=value
// pairs:
//
//	METRICS_PREFIX=myapp
//	METRICS_LABELS=app=myapp,env=prod,region=us
//
// Custom collectors join the same registry through Register, so one scrape
// covers application metrics and function metrics alike.
package instrumented
