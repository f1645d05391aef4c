package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_FallsBackToBase(t *testing.T) {
	e := FromContext(context.Background())
	require.NotNil(t, e)
	assert.Same(t, L(), e.Logger)
}

func TestFromContext_ReturnsStoredEntry(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, Configure("info", "json"))
	t.Cleanup(func() { SetOutput(os.Stdout) })

	entry := L().WithField(RequestID, "req-1")
	ctx := WithContext(context.Background(), entry)
	FromContext(ctx).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line[RequestID])
	assert.Equal(t, "hello", line["msg"])
}

func TestConfigure_RejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Configure("chatty", "text"))
	require.NoError(t, Configure("warn", "text"))
	assert.Equal(t, logrus.WarnLevel, L().GetLevel())
}
