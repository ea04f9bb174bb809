// Package main runs the end-to-end demo: functions rewritten by the
// instrument tool, decorator-wrapped helpers, a scheduled feed refresh and
// a custom collector, all scraped from one /metrics endpoint.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"instrumented"
	"instrumented/internal/logging"
	"instrumented/pkg/config"
)

// work.go holds the annotated sources; go generate rewrites them into
// work_gen.go, which is what the build compiles.
//
//go:generate go run instrumented/cmd/instrument -o work_gen.go work.go

func main() {
	logger := initLogger()
	slog.SetDefault(logger)

	addr := config.GetEnvString("METRICS_ADDR", "127.0.0.1:5000")
	instrumented.Init(addr)

	runtime := config.GetEnvDuration("DEMO_RUNTIME", 5*time.Second)
	if err := config.ValidatePositiveDuration(runtime); err != nil {
		logger.Warn("invalid DEMO_RUNTIME, using default", slog.Any("error", err))
		runtime = 5 * time.Second
	}
	feeds := config.GetEnvStringList("DEMO_FEEDS", []string{
		"https://go.dev/blog/feed.atom",
		"ftp://feeds.example.com/changes",
	})
	logger.Info("demo starting",
		slog.String("addr", addr),
		slog.Duration("runtime", runtime),
		slog.Int("feeds", len(feeds)))

	// Rewritten functions, one of each shape.
	pause()
	if _, err := greet(); err != nil {
		logger.Error("greet failed", slog.Any("error", err))
	}
	if _, err := fetchMissing(); err == nil {
		logger.Error("fetchMissing unexpectedly succeeded")
	}

	// The decorator equivalent of the same instrumentation.
	count := instrumented.Value("countFeeds", func() int {
		return len(feeds)
	}, instrumented.WithOKLevel(slog.LevelDebug))
	logger.Info("feeds configured", slog.Int("count", count))

	// A custom collector on the shared registry.
	refreshRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "demo_refresh_runs_total",
		Help: "Number of scheduled refresh runs.",
	})
	instrumented.MustRegister(refreshRuns)

	// Refresh every feed on a fixed schedule until the runtime elapses.
	c := cron.New(cron.WithSeconds())
	schedule := config.GetEnvString("DEMO_SCHEDULE", "*/2 * * * * *")
	_, err := c.AddFunc(schedule, func() {
		refreshRuns.Inc()
		jobLogger := logging.WithFields(logger, map[string]interface{}{
			"job_id": uuid.New().String(),
		})
		refreshAll(logging.WithLogger(context.Background(), jobLogger), feeds)
	})
	if err != nil {
		logger.Error("failed to add refresh job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()
	time.Sleep(runtime)
	c.Stop()

	body, err := scrape(addr)
	if err != nil {
		logger.Error("failed to scrape metrics", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println(body)
}

// refreshAll refreshes each feed once, logging failures through the logger
// carried in ctx.
func refreshAll(ctx context.Context, feeds []string) {
	logger := logging.FromContext(ctx)
	for _, feed := range feeds {
		if err := refreshFeed(feed); err != nil {
			logger.Warn("feed refresh failed",
				slog.String("feed", feed),
				slog.Any("error", err))
		}
	}
}

// scrape fetches this process's own metrics endpoint, the same request a
// Prometheus server would make.
func scrape(addr string) (string, error) {
	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func initLogger() *slog.Logger {
	if config.GetEnvString("LOG_FORMAT", "json") == "text" {
		return logging.NewTextLogger()
	}
	return logging.NewLogger()
}
