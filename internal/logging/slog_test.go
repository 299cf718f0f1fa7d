package logging

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_FileOnly_NoStdout(t *testing.T) {
	// Capture stdout to verify nothing is written there
	origStdout := captureStdout(t)

	var fileBuf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &fileBuf, Level: "info"}))
	m.Logger().Info("hello file")

	stdout := origStdout()

	assert.Contains(t, fileBuf.String(), "hello file", "log should appear in file")
	assert.Empty(t, stdout, "nothing should be written to stdout when file is provided")
}

func TestSetup_NoFile_WritesToStdout(t *testing.T) {
	origStdout := captureStdout(t)

	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{Level: "info"}))
	m.Logger().Info("hello console")

	stdout := origStdout()

	assert.Contains(t, stdout, "hello console", "log should appear on stdout")
}

func TestSetup_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &buf, Level: "debug"}))

	m.Logger().Debug("debug msg")
	m.Logger().Info("info msg")

	output := buf.String()
	assert.Contains(t, output, "debug msg")
	assert.Contains(t, output, "info msg")
}

func TestSetup_InfoLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &buf, Level: "info"}))

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be filtered")
	assert.Contains(t, output, "should appear")
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	m := NewSlogManager()

	require.NoError(t, m.Setup(Options{File: &buf1, Level: "info"}))
	m.Logger().Info("first")

	require.NoError(t, m.Setup(Options{File: &buf2, Level: "info"}))
	m.Logger().Info("second")

	assert.Contains(t, buf1.String(), "first")
	assert.NotContains(t, buf1.String(), "second", "old file should not receive new logs")
	assert.Contains(t, buf2.String(), "second")
}

type fakeClock struct {
	now   time.Duration
	ticks uint64
}

func (c *fakeClock) Now() time.Duration { return c.now }
func (c *fakeClock) Ticks() uint64      { return c.ticks }

func TestSetup_WithClock(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{now: 1500 * time.Millisecond, ticks: 15}
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &buf, Level: "info", Clock: ClockAttrs(clock)}))

	m.Logger().Info("transfer", "zone", "stop-1")

	line := lastLine(buf.String())
	assert.Contains(t, line, "simTime=1.5s")
	assert.Contains(t, line, "tick=15")
	assert.Less(t, strings.Index(line, "simTime"), strings.Index(line, "zone=stop-1"))
}

func TestSetup_Graylog(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	var buf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &buf, Level: "info", GelfAddress: conn.LocalAddr().String()}))
	defer m.Close()

	m.Logger().Info("hello graylog")

	packet := make([]byte, 8192)
	deadline := time.Now().Add(2 * time.Second)
	found := false
	for !found && time.Now().Before(deadline) {
		require.NoError(t, conn.SetReadDeadline(deadline))
		n, _, err := conn.ReadFrom(packet)
		require.NoError(t, err)

		zr, err := gzip.NewReader(bytes.NewReader(packet[:n]))
		require.NoError(t, err)
		body, err := io.ReadAll(zr)
		require.NoError(t, err)
		found = strings.Contains(string(body), "hello graylog")
	}
	assert.True(t, found, "graylog should receive the record")
	assert.Contains(t, buf.String(), "hello graylog")
}

func TestSetup_GraylogBadAddress(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	err := m.Setup(Options{File: &buf, Level: "info", GelfAddress: "not-an-address"})
	assert.Error(t, err)

	m.Logger().Info("still logging")
	assert.Contains(t, buf.String(), "still logging")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	logger := m.Logger()
	assert.Equal(t, slog.Default(), logger)
}

func TestClose_WithoutGraylog(t *testing.T) {
	m := NewSlogManager()
	assert.NoError(t, m.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), tt.input)
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	multi := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	)
	slog.New(multi).Info("fan out")

	assert.Contains(t, a.String(), "fan out")
	assert.Contains(t, b.String(), `"msg":"fan out"`)
}

func TestMultiHandler_FiltersNilHandlers(t *testing.T) {
	multi := NewMultiHandler(nil, slog.NewTextHandler(io.Discard, nil), nil)
	assert.Len(t, multi.handlers, 1)
}

func TestMultiHandler_Enabled(t *testing.T) {
	multi := NewMultiHandler(
		slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	ctx := context.Background()
	assert.True(t, multi.Enabled(ctx, slog.LevelInfo))
	assert.False(t, multi.Enabled(ctx, slog.LevelDebug))
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(slog.NewTextHandler(&buf, nil))

	slog.New(multi.WithAttrs([]slog.Attr{slog.String("zone", "stop-1")}).WithGroup("batch")).
		Info("moved", "count", 2)

	assert.Contains(t, buf.String(), "zone=stop-1")
	assert.Contains(t, buf.String(), "batch.count=2")
	assert.Equal(t, multi, multi.WithGroup(""))
}

// errorHandler is a slog.Handler that always returns an error from Handle.
type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(_ context.Context, _ slog.Record) error {
	return errors.New("handler error")
}

func (h *errorHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func TestMultiHandler_HandleError(t *testing.T) {
	var buf bytes.Buffer
	spy := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	// First handler errors, second (spy) should still receive the record.
	multi := NewMultiHandler(&errorHandler{}, spy)
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "should reach spy", 0)
	err := multi.Handle(context.Background(), r)

	assert.EqualError(t, err, "handler error")
	assert.Contains(t, buf.String(), "should reach spy")
}

func TestContextHandler_NilProvider(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), nil)
	slog.New(h.WithAttrs([]slog.Attr{slog.Int("n", 1)})).Info("plain")
	assert.Contains(t, buf.String(), "n=1")
	assert.Same(t, h, h.WithGroup(""))
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

// captureStdout redirects stdout to a pipe and returns a function that
// restores stdout and returns what was captured.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)

	origStdout := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = origStdout
		var buf bytes.Buffer
		buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}
