package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestBuild_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger, err := build(Config{Level: "debug", Format: "JSON"}, zapcore.AddSync(&buf))
	require.NoError(t, err)
	logger.Named("engine").Debug("spec resolved", zap.String("file", "readme.md"))
	require.NoError(t, logger.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "engine", line["logger"])
	assert.Equal(t, "spec resolved", line["msg"])
	assert.Equal(t, "readme.md", line["file"])
}

func TestBuild_Console(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger, err := build(Config{Level: "warn", Format: FormatConsole}, zapcore.AddSync(&buf))
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, logger.Sync())
	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "WARN")
	assert.True(t, strings.Contains(out, "kept"))
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "loud", Format: FormatJSON}},
		{"bad format", Config{Level: "info", Format: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.cfg)
			require.Error(t, err)
		})
	}
}

func TestNewWriter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger, err := NewWriter(Config{Level: "warn", Format: FormatJSON}, &buf)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept", zap.String("path", "spec/index.yml"))
	require.NoError(t, logger.Sync())
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"path":"spec/index.yml"`)
}
