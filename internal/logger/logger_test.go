package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logRecord struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	originalLogger := Logger
	Logger = slog.New(handler)
	defer func() { Logger = originalLogger }()

	tests := []struct {
		name  string
		fn    func(msg string, args ...any)
		level string
		msg   string
	}{
		{name: "Info", fn: Info, level: "INFO", msg: "info message"},
		{name: "Error", fn: Error, level: "ERROR", msg: "error message"},
		{name: "Warn", fn: Warn, level: "WARN", msg: "warn message"},
		{name: "Debug", fn: Debug, level: "DEBUG", msg: "debug message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn(tt.msg)

			var rec logRecord
			require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
			assert.Equal(t, tt.msg, rec.Msg)
			assert.Equal(t, tt.level, rec.Level)
		})
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	originalLogger := Logger
	defer func() {
		Logger = originalLogger
		level.Set(slog.LevelWarn)
	}()
	SetOutput(&buf)

	require.NoError(t, SetLevel("error"))
	Warn("hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, SetLevel("debug"))
	Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelWarn, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
