package log

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	prev := defaultLogger.Formatter
	defaultLogger.Formatter = &logrus.TextFormatter{DisableTimestamp: true, DisableColors: true}
	t.Cleanup(func() {
		SetOutput(logrus.StandardLogger().Out)
		defaultLogger.Formatter = prev
		_ = SetLevel("info")
	})
	return buf
}

func TestKeyValuePairs(t *testing.T) {
	buf := capture(t)
	require.NoError(t, SetLevel("debug"))

	Debug("Dispatching request", "method", "GET", "url", "/a")
	assert.Contains(t, buf.String(), `level=debug msg="Dispatching request" method=GET url=/a`)
}

func TestContextFields(t *testing.T) {
	buf := capture(t)
	ctx := NewContext(context.Background(), "requestId", "abc")
	ctx = NewContext(ctx, "attempt", 1)

	Warn(ctx, "Dispatch failed", errors.New("boom"))
	out := buf.String()
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "requestId=abc")
	assert.Contains(t, out, "attempt=1")
	assert.Contains(t, out, "error=boom")
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	require.NoError(t, SetLevel("WARN"))
	assert.Equal(t, "warning", CurrentLevel())
	assert.False(t, IsDebug())

	Info("hidden")
	Error("shown", "odd")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "_extra=odd")

	assert.Error(t, SetLevel("loud"))
}
