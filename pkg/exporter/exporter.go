// Package exporter serves the process-wide metrics registry over HTTP as a
// Prometheus scrape target.
package exporter

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"instrumented/pkg/metrics"
)

// Start binds addr and serves the scrape endpoint from a background
// goroutine, returning as soon as the listener is bound. Start is
// fire-and-forget: no handle is returned and no shutdown hook is exposed;
// the exporter lives until the process exits. A bind failure is fatal — an
// exporter that cannot start means the deployment is misconfigured and
// should fail fast rather than run unobserved.
//
// The server responds to /metrics with the Prometheus text exposition
// format and to every other path with a plain-text 404. Each call binds its
// own listener; all of them serve the same registry.
func Start(addr string) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("metrics exporter failed to bind",
			slog.String("addr", addr),
			slog.Any("error", err))
		os.Exit(1)
	}
	serve(ln)
}

// serve starts the exporter on an already-bound listener.
func serve(ln net.Listener) {
	server := newServer()
	slog.Info("metrics exporter listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("endpoint", "/metrics"))

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics exporter error", slog.Any("error", err))
		}
	}()
}

// newServer builds the HTTP server around the process-wide registry.
func newServer() *http.Server {
	return &http.Server{
		Handler:      newHandler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// newHandler routes on the request path alone: the metrics page for
// /metrics, a 404 for everything else. No path cleaning, no method
// filtering; scrapers send plain GETs and anything fancier has the wrong
// address.
func newHandler() http.Handler {
	metricsPage := promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			metricsPage.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Not found.", http.StatusNotFound)
	})
}
