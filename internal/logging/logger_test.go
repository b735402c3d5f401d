package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Format: "text", Output: &buf})

	logger.Debug("draft %s opened", "d1")
	logger.Info("turn took %dms", 42)
	out := buf.String()
	assert.Contains(t, out, "draft d1 opened")
	assert.Contains(t, out, "turn took 42ms")
}

func TestNewJSONLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf}).Component("router")
	logger.Info("routed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "routed", entry["msg"])
	assert.Equal(t, "router", entry["component"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Output: &buf})
	logger.Info("quiet")
	logger.Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	logger := New(Config{})
	assert.Equal(t, Logger(logger), OrNop(logger))
}

func TestComponentHelper(t *testing.T) {
	// Non-slog implementations pass through untouched.
	assert.NotNil(t, Component(Nop(), "x"))
	assert.NotNil(t, Component(nil, "x"))
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Debug("a")
		Nop().Info("b %d", 1)
		Nop().Warn("c")
		Nop().Error("d")
	})
}
