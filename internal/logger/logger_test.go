package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelWarning)

	l.Debug("debug line")
	l.Info("info line")
	l.Warning("warning %d", 1)
	l.Error("error %s", "two")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "[WARNING] warning 1")
	assert.Contains(t, out, "[ERROR] error two")
}

func TestLogger_NamedAddsScope(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelDebug)
	l.SetPrefix("quickfix: ")

	l.Named("missing-index").Info("emitted %d fixes", 3)

	assert.Contains(t, buf.String(), "[INFO] quickfix: [missing-index] emitted 3 fixes")
}

func TestLogger_NamedFollowsLevelChanges(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelDebug)
	scoped := l.Named("blocking-query")

	l.SetLevel(LevelError)
	scoped.Warning("hidden")
	scoped.Error("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_NoArgsKeepsPercent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelDebug)

	// Called through a func value so vet's printf check does not flag the
	// intentional bare "%" in a no-args message.
	info := l.Info
	info("100% done")

	assert.True(t, strings.HasSuffix(buf.String(), "100% done\n"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarning, ParseLevel("WARN"))
	assert.Equal(t, LevelWarning, ParseLevel(" warning "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelFatal, ParseLevel("fatal"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestLevelToString(t *testing.T) {
	assert.Equal(t, "INFO", LevelToString(LevelInfo))
	assert.Equal(t, "UNKNOWN", LevelToString(42))
}

func TestDetectLogLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, detectLogLevel("2024/01/01 [DEBUG] x"))
	assert.Equal(t, LevelError, detectLogLevel("MSSQL bağlantı testi başarısız"))
	assert.Equal(t, LevelError, detectLogLevel("query failed: deadlock"))
	assert.Equal(t, LevelWarning, detectLogLevel("analysis timed out"))
	assert.Equal(t, LevelInfo, detectLogLevel("analysis completed"))
}

func TestLogWriter_UsesLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelError)
	w := &logWriter{logger: l}

	n, err := w.Write([]byte("analysis completed\n"))
	assert.NoError(t, err)
	assert.Equal(t, len("analysis completed\n"), n)
	assert.Empty(t, buf.String())

	_, _ = w.Write([]byte("connection failed\n"))
	assert.Contains(t, buf.String(), "connection failed")
}
