package llm_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/randalmurphal/triage/pkg/triage/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client := llm.WithLogging(llm.NewMockClient("hello back"), logger)
	resp, err := client.Complete(context.Background(), llm.UserRequest("be brief", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello back", resp.Content)

	out := buf.String()
	assert.Contains(t, out, `msg="llm request"`)
	assert.Contains(t, out, "prompt=hello")
	assert.Contains(t, out, `msg="llm response"`)
	assert.Contains(t, out, `content="hello back"`)
}

func TestWithLogging_Failure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	failing := llm.NewMockClient("").WithError(llm.NewError("complete", errors.New("503"), true))
	_, err := llm.WithLogging(failing, logger).Complete(context.Background(), llm.UserRequest("", "x"))
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "retryable=true")
	assert.NotContains(t, out, `msg="llm request"`)
}
