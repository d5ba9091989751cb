package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: "json", Output: &buf})
	require.NoError(t, err)
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", "JSON", ""} {
		t.Run(format, func(t *testing.T) {
			l, err := New(Config{Level: "info", Format: format, Output: &bytes.Buffer{}})
			require.NoError(t, err)
			assert.NotNil(t, l.Slog())
		})
	}
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	assert.ErrorContains(t, err, "unsupported format")

	_, err = New(Config{Level: "loud"})
	assert.ErrorContains(t, err, "unsupported level")
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn")
	defer SetLevel("info")

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn message", entries[0]["msg"])
	assert.Equal(t, "error message", entries[1]["msg"])
}

func TestSetLevel(t *testing.T) {
	l, buf := newBufferLogger(t, "info")
	defer SetLevel("info")

	l.Debug("hidden")
	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, "debug", CurrentLevel())
	l.Debug("visible")

	assert.Error(t, SetLevel("verbose"))
	assert.Equal(t, "debug", CurrentLevel(), "a rejected level leaves the current one")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "visible", entries[0]["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "warning", want: slog.LevelWarn},
		{in: " warn ", want: slog.LevelWarn},
		{in: "", want: slog.LevelInfo},
		{in: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLogger_With(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	l.With("op", "load", "database", "main/orders").Info("snapshots loaded")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "load", entries[0]["op"])
	assert.Equal(t, "main/orders", entries[0]["database"])
}

func TestL_RequestID(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	ctx := WithLogger(context.Background(), l)
	ctx = WithRequestID(ctx, "req-42")
	L(ctx).Info("hello")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0]["request_id"])
	assert.Equal(t, "req-42", RequestIDFromContext(ctx))
}

func TestLogger_WithContextCarriesRequestID(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	ctx := WithRequestID(context.Background(), "req-7")
	bound := l.With("op", "restore").WithContext(ctx)
	bound.Warn("restore failed")
	l.Info("unbound")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "req-7", entries[0]["request_id"])
	assert.Equal(t, "restore", entries[0]["op"])
	assert.NotContains(t, entries[1], "request_id")
}

func TestFromContext_Fallback(t *testing.T) {
	assert.Same(t, fallback, FromContext(context.Background()))

	l := Nop()
	assert.Same(t, l, FromContext(WithLogger(context.Background(), l)))
}

func TestRedact_ConnectionURL(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	l.Info("connecting",
		"target", "postgres://admin:hunter2@db:5432/postgres?sslmode=disable",
		"cache", "redis://:s3cret@cache:6379/0",
	)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "postgres://admin:xxxxx@db:5432/postgres?sslmode=disable", entries[0]["target"])
	assert.NotContains(t, entries[0]["cache"], "s3cret")
}

func TestRedact_SensitiveKeys(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	l.Info("config", "redis_password", "pw", "dsn", "host=db user=u", "database", "orders")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, redactedValue, entries[0]["redis_password"])
	assert.Equal(t, redactedValue, entries[0]["dsn"])
	assert.Equal(t, "orders", entries[0]["database"])
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"host=db user=u password=pw dbname=x", "host=db user=u password=xxxxx dbname=x"},
		{"host=db password='p w' dbname=x", "host=db password=xxxxx dbname=x"},
		{"postgresql://u@db/x", "postgresql://u@db/x"},
		{"orders", "orders"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactString(tt.in))
	}
}

func TestIsSensitiveKey(t *testing.T) {
	assert.True(t, IsSensitiveKey("Password"))
	assert.True(t, IsSensitiveKey("connection_dsn"))
	assert.False(t, IsSensitiveKey("database"))
}
