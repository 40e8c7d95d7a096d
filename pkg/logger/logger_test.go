package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()
	var e LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &e))
	return e
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo}).With(Component("api"))

	log.WithRequestID("req-1").Info("rating submitted",
		StudentID("s1"),
		Reviewer("rev"),
		Rating(8),
		Err(errors.New("x")),
	)

	e := decode(t, &buf)
	assert.Equal(t, "INFO", e.Level)
	assert.Equal(t, "rating submitted", e.Message)
	assert.Equal(t, "api", e.Fields["component"])
	assert.Equal(t, "req-1", e.Fields[RequestIDKey])
	assert.Equal(t, "s1", e.Fields["student_id"])
	assert.Equal(t, "rev", e.Fields["reviewer"])
	assert.Equal(t, float64(8), e.Fields["rating"])
	assert.Equal(t, "x", e.Fields["error"])
	assert.Empty(t, e.Caller)
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelWarn})

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Equal(t, "WARN", decode(t, &buf).Level)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" Warning "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf})
	ctx := WithContext(context.Background(), log)

	assert.Same(t, log, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error("nothing", String("k", "v"))
	})
}
