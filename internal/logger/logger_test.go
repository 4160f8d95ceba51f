package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeRejectsBadLevel(t *testing.T) {
	once = initOnce{}
	err := Initialize(Config{Level: "not-a-level", Format: "json"})
	assert.Error(t, err)
}

func TestInitializeDefaultsToJSON(t *testing.T) {
	once = initOnce{}
	require.NoError(t, Initialize(Config{Level: "info", Format: "bogus"}))
	assert.NotNil(t, globalLogger)
}

func TestWithContextAttachesTraceID(t *testing.T) {
	once = initOnce{}
	require.NoError(t, Initialize(Config{Level: "debug", Format: "console"}))

	ctx := WithTraceID(context.Background(), "trace-123")
	assert.Equal(t, "trace-123", GetTraceID(ctx))

	l := WithContext(ctx)
	assert.NotNil(t, l)
}

func TestWithContextNilLoggerIsNoop(t *testing.T) {
	globalLogger = nil
	l := WithContext(context.Background())
	assert.NotNil(t, l)
}
