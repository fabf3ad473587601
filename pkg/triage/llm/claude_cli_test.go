package llm_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/randalmurphal/triage/pkg/triage/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClaude writes an executable shell script standing in for the claude binary.
func fakeClaude(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestClaudeCLI_Complete(t *testing.T) {
	path := fakeClaude(t, `echo "  positive feedback  "`)
	client := llm.NewClaudeCLI(llm.WithClaudePath(path), llm.WithClaudeModel("sonnet"))

	resp, err := client.Complete(context.Background(), llm.UserRequest("", "great"))
	require.NoError(t, err)
	assert.Equal(t, "positive feedback", resp.Content)
	assert.Equal(t, "sonnet", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestClaudeCLI_RetryableFailure(t *testing.T) {
	path := fakeClaude(t, `echo "rate limit exceeded" >&2; exit 1`)
	client := llm.NewClaudeCLI(llm.WithClaudePath(path))

	_, err := client.Complete(context.Background(), llm.UserRequest("", "x"))
	require.Error(t, err)
	assert.True(t, llm.IsRetryable(err))
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestClaudeCLI_PermanentFailure(t *testing.T) {
	path := fakeClaude(t, `echo "invalid api key" >&2; exit 2`)
	client := llm.NewClaudeCLI(llm.WithClaudePath(path))

	_, err := client.Complete(context.Background(), llm.UserRequest("", "x"))
	require.Error(t, err)
	assert.False(t, llm.IsRetryable(err))
}

func TestClaudeCLI_MissingBinary(t *testing.T) {
	client := llm.NewClaudeCLI(llm.WithClaudePath(filepath.Join(t.TempDir(), "nope")))

	_, err := client.Complete(context.Background(), llm.UserRequest("", "x"))
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "complete", llmErr.Op)
}
