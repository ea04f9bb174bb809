package instrumented

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instrumented/pkg/metrics"
)

// labels is a partial label match: a metric matches when it carries every
// listed pair.
type labels map[string]string

// findMetric gathers the process-wide registry and returns the metric of
// family matching all given labels, or nil when nothing matches.
func findMetric(t *testing.T, family string, match labels) *dto.Metric {
	t.Helper()

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != family {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchesLabels(m, match) {
				return m
			}
		}
	}
	return nil
}

func matchesLabels(m *dto.Metric, match labels) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range match {
		if got[k] != v {
			return false
		}
	}
	return true
}

func counterValue(t *testing.T, family string, match labels) float64 {
	t.Helper()

	m := findMetric(t, family, match)
	require.NotNil(t, m, "no %s metric matching %v", family, match)
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, family string, match labels) float64 {
	t.Helper()

	m := findMetric(t, family, match)
	require.NotNil(t, m, "no %s metric matching %v", family, match)
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, family string, match labels) uint64 {
	t.Helper()

	m := findMetric(t, family, match)
	require.NotNil(t, m, "no %s metric matching %v", family, match)
	return m.GetHistogram().GetSampleCount()
}

// logLines decodes one JSON object per non-empty line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var lines []map[string]any
	for _, raw := range strings.Split(buf.String(), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// TestCall verifies that a fallible call is measured on both outcomes, that
// results and errors pass through unchanged, and that one log line per
// outcome is emitted at the configured level.
func TestCall(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)
	errBoom := errors.New("boom")

	got, err := Call("TestCall_fn", func() (string, error) {
		return "x", nil
	}, WithLevel(slog.LevelInfo), WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, "x", got)

	_, err = Call("TestCall_fn", func() (string, error) {
		return "", errBoom
	}, WithLevel(slog.LevelInfo), WithLogger(logger))
	require.ErrorIs(t, err, errBoom)

	name := labels{"name": "TestCall_fn", "kind": "func_call", "ctx": "default"}
	assert.Equal(t, 2.0, counterValue(t, "function_called_total", name))
	assert.Equal(t, 1.0, counterValue(t, "function_error_total",
		labels{"name": "TestCall_fn", "err": "boom"}))
	assert.Equal(t, 0.0, gaugeValue(t, "function_calls_inflight", name))
	assert.Equal(t, uint64(2), histogramCount(t, "function_time_seconds", name))

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "TestCall_fn() => x", lines[0]["msg"])
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "TestCall_fn() => boom", lines[1]["msg"])
	assert.Equal(t, "INFO", lines[1]["level"])
}

// TestRun verifies that a void function is measured, with the in-flight
// gauge raised while the function runs and drained afterwards.
func TestRun(t *testing.T) {
	match := labels{"name": "TestRun_fn"}

	var during float64
	Run("TestRun_fn", func() {
		during = gaugeValue(t, "function_calls_inflight", match)
	})

	assert.Equal(t, 1.0, during)
	assert.Equal(t, 0.0, gaugeValue(t, "function_calls_inflight", match))
	assert.Equal(t, 1.0, counterValue(t, "function_called_total", match))
	assert.Equal(t, uint64(1), histogramCount(t, "function_time_seconds", match))
}

// TestRun_LogsLiteralOK verifies that a function with no results logs the
// literal "ok" in place of a return value.
func TestRun_LogsLiteralOK(t *testing.T) {
	var buf bytes.Buffer

	Run("TestRunOK_fn", func() {}, WithLevel(slog.LevelDebug), WithLogger(newBufferLogger(&buf)))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "TestRunOK_fn() => ok", lines[0]["msg"])
	assert.Equal(t, "DEBUG", lines[0]["level"])
}

// TestDo verifies error propagation and that only the failing outcome is
// logged when just an error level is configured.
func TestDo(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)
	errStale := errors.New("stale")

	err := Do("TestDo_fn", func() error {
		return errStale
	}, WithErrLevel(slog.LevelWarn), WithLogger(logger))
	require.ErrorIs(t, err, errStale)

	err = Do("TestDo_fn", func() error {
		return nil
	}, WithErrLevel(slog.LevelWarn), WithLogger(logger))
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, "function_called_total", labels{"name": "TestDo_fn"}))
	assert.Equal(t, 1.0, counterValue(t, "function_error_total",
		labels{"name": "TestDo_fn", "err": "stale"}))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "TestDo_fn() => stale", lines[0]["msg"])
	assert.Equal(t, "WARN", lines[0]["level"])
}

// TestValue verifies that an infallible value function returns its result,
// logs it, and never touches the error counter.
func TestValue(t *testing.T) {
	var buf bytes.Buffer

	got := Value("TestValue_fn", func() int {
		return 42
	}, WithOKLevel(slog.LevelInfo), WithLogger(newBufferLogger(&buf)))
	assert.Equal(t, 42, got)

	assert.Equal(t, 1.0, counterValue(t, "function_called_total", labels{"name": "TestValue_fn"}))
	assert.Nil(t, findMetric(t, "function_error_total", labels{"name": "TestValue_fn"}))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "TestValue_fn() => 42", lines[0]["msg"])
}

// TestCall_SeparateLevels verifies that success and failure can log at
// different levels.
func TestCall_SeparateLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	_, _ = Call("TestLevels_fn", func() (int, error) {
		return 1, nil
	}, WithOKLevel(slog.LevelDebug), WithErrLevel(slog.LevelError), WithLogger(logger))
	_, _ = Call("TestLevels_fn", func() (int, error) {
		return 0, errors.New("down")
	}, WithOKLevel(slog.LevelDebug), WithErrLevel(slog.LevelError), WithLogger(logger))

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.Equal(t, "ERROR", lines[1]["level"])
}

// TestCall_CustomFormat verifies that WithFormat replaces the default
// message shape on both outcomes.
func TestCall_CustomFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	_, _ = Call("TestFormat_fn", func() (string, error) {
		return "done", nil
	}, WithLevel(slog.LevelInfo), WithFormat("refresh => %v"), WithLogger(logger))
	_, _ = Call("TestFormat_fn", func() (string, error) {
		return "", errors.New("offline")
	}, WithLevel(slog.LevelInfo), WithFormat("refresh => %v"), WithLogger(logger))

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "refresh => done", lines[0]["msg"])
	assert.Equal(t, "refresh => offline", lines[1]["msg"])
}

// TestCall_ContextLabel verifies that WithContextLabel replaces the
// default ctx label on every family.
func TestCall_ContextLabel(t *testing.T) {
	_, _ = Call("TestCtx_fn", func() (int, error) {
		return 0, errors.New("nope")
	}, WithContextLabel("jobs"))

	assert.NotNil(t, findMetric(t, "function_called_total",
		labels{"name": "TestCtx_fn", "ctx": "jobs"}))
	assert.NotNil(t, findMetric(t, "function_error_total",
		labels{"name": "TestCtx_fn", "ctx": "jobs"}))
	assert.Nil(t, findMetric(t, "function_called_total",
		labels{"name": "TestCtx_fn", "ctx": "default"}))
}

// TestCall_NoLevelNoLogs verifies that without a level option the call is
// measured but nothing is logged.
func TestCall_NoLevelNoLogs(t *testing.T) {
	var buf bytes.Buffer

	_, err := Call("TestSilent_fn", func() (int, error) {
		return 0, errors.New("quiet")
	}, WithLogger(newBufferLogger(&buf)))
	require.Error(t, err)

	assert.Equal(t, 1.0, counterValue(t, "function_called_total", labels{"name": "TestSilent_fn"}))
	assert.Equal(t, 1.0, counterValue(t, "function_error_total", labels{"name": "TestSilent_fn"}))
	assert.Empty(t, buf.String())
}

// TestRun_PanicDrainsInflight verifies that the in-flight gauge and the
// timer recover even when the observed function panics.
func TestRun_PanicDrainsInflight(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		Run("TestPanic_fn", func() { panic("boom") })
	})

	match := labels{"name": "TestPanic_fn"}
	assert.Equal(t, 1.0, counterValue(t, "function_called_total", match))
	assert.Equal(t, 0.0, gaugeValue(t, "function_calls_inflight", match))
	assert.Equal(t, uint64(1), histogramCount(t, "function_time_seconds", match))
}
