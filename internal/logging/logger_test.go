package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_RenamesError(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, slog.LevelInfo, true).Error("failed", "error", errors.New("boom"))
	assert.Contains(t, buf.String(), `"err":"boom"`)

	buf.Reset()
	NewWithWriter(&buf, slog.LevelInfo, false).Error("failed", "error", errors.New("boom"))
	assert.Contains(t, buf.String(), "err=boom")

	buf.Reset()
	NewWithWriter(&buf, slog.LevelWarn, false).Info("hidden")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		level   slog.Level
		enabled bool
	}{
		{"", 0, false},
		{"off", 0, false},
		{"debug", slog.LevelDebug, true},
		{" Info ", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"ERROR", slog.LevelError, true},
	}
	for _, tt := range tests {
		level, enabled, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.enabled, enabled, tt.in)
		assert.Equal(t, tt.level, level, tt.in)
	}

	_, _, err := ParseLevel("loud")
	assert.Error(t, err)
}
