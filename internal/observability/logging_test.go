package observability

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerDefaultsToInfoAndText(t *testing.T) {
	logger, err := NewLogger(&Config{SessionID: "s1", CommandPath: "agent-yes claude"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLoggerRejectsInvalidLevel(t *testing.T) {
	_, err := NewLogger(&Config{Level: "noisy"})
	assert.Error(t, err)
}

func TestNewLoggerRejectsInvalidFormat(t *testing.T) {
	_, err := NewLogger(&Config{Format: "xml"})
	assert.Error(t, err)
}

func TestRedactAttrMasksSensitiveKeys(t *testing.T) {
	got := redactAttr(nil, slog.String("api_key", "sk-secret"))
	assert.Equal(t, redactedValue, got.Value.String())

	got = redactAttr(nil, slog.String("message", "hello"))
	assert.Equal(t, "hello", got.Value.String())
}
