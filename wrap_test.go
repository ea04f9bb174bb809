package instrumented

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWrapCall verifies that a wrapper measures every invocation and keeps
// the options resolved at wrap time.
func TestWrapCall(t *testing.T) {
	var buf bytes.Buffer
	errDown := errors.New("down")
	next := "a"
	fetch := WrapCall("TestWrapCall_fn", func() (string, error) {
		if next == "" {
			return "", errDown
		}
		return next, nil
	}, WithLevel(slog.LevelInfo), WithLogger(newBufferLogger(&buf)))

	got, err := fetch()
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	next = "b"
	got, err = fetch()
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	next = ""
	_, err = fetch()
	require.ErrorIs(t, err, errDown)

	match := labels{"name": "TestWrapCall_fn"}
	assert.Equal(t, 3.0, counterValue(t, "function_called_total", match))
	assert.Equal(t, 1.0, counterValue(t, "function_error_total",
		labels{"name": "TestWrapCall_fn", "err": "down"}))
	assert.Equal(t, uint64(3), histogramCount(t, "function_time_seconds", match))

	lines := logLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "TestWrapCall_fn() => a", lines[0]["msg"])
	assert.Equal(t, "TestWrapCall_fn() => b", lines[1]["msg"])
	assert.Equal(t, "TestWrapCall_fn() => down", lines[2]["msg"])
}

// TestWrapRun verifies that a void wrapper counts each invocation.
func TestWrapRun(t *testing.T) {
	calls := 0
	tick := WrapRun("TestWrapRun_fn", func() { calls++ }, WithContextLabel("ticker"))

	tick()
	tick()

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2.0, counterValue(t, "function_called_total",
		labels{"name": "TestWrapRun_fn", "ctx": "ticker"}))
}

// TestWrapDo verifies that errors pass through the wrapper unchanged.
func TestWrapDo(t *testing.T) {
	errFull := errors.New("queue full")
	enqueue := WrapDo("TestWrapDo_fn", func() error { return errFull })

	require.ErrorIs(t, enqueue(), errFull)
	assert.Equal(t, 1.0, counterValue(t, "function_error_total",
		labels{"name": "TestWrapDo_fn", "err": "queue full"}))
}

// TestWrapValue verifies that the wrapper returns the wrapped function's
// value unchanged.
func TestWrapValue(t *testing.T) {
	n := 0
	sequence := WrapValue("TestWrapValue_fn", func() int {
		n++
		return n
	})

	assert.Equal(t, 1, sequence())
	assert.Equal(t, 2, sequence())
	assert.Equal(t, 2.0, counterValue(t, "function_called_total",
		labels{"name": "TestWrapValue_fn"}))
}
