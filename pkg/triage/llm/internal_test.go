package llm

import (
	"errors"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

// Internal tests for private functions

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		client   *ClaudeCLI
		req      CompletionRequest
		contains []string
		excludes []string
	}{
		{
			name:     "basic request",
			client:   NewClaudeCLI(),
			req:      UserRequest("", "Hello"),
			contains: []string{"--print", "-p", "Hello"},
			excludes: []string{"--system-prompt", "--model"},
		},
		{
			name:     "with system prompt",
			client:   NewClaudeCLI(),
			req:      UserRequest("Be helpful", "Hi"),
			contains: []string{"--system-prompt", "Be helpful"},
		},
		{
			name:     "model from client",
			client:   NewClaudeCLI(WithClaudeModel("claude-3-opus")),
			req:      UserRequest("", "Test"),
			contains: []string{"--model", "claude-3-opus"},
		},
		{
			name:   "model from request overrides client",
			client: NewClaudeCLI(WithClaudeModel("default-model")),
			req: CompletionRequest{
				Model:    "request-model",
				Messages: []Message{{Role: RoleUser, Content: "Test"}},
			},
			contains: []string{"request-model"},
			excludes: []string{"default-model"},
		},
		{
			name:   "max tokens",
			client: NewClaudeCLI(),
			req: CompletionRequest{
				MaxTokens: 1000,
				Messages:  []Message{{Role: RoleUser, Content: "Test"}},
			},
			contains: []string{"--max-tokens", "1000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.client.buildArgs(tt.req)
			for _, want := range tt.contains {
				assert.Contains(t, args, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, args, unwanted)
			}
		})
	}
}

func TestBuildArgs_FoldsConversation(t *testing.T) {
	args := NewClaudeCLI().buildArgs(CompletionRequest{
		Messages: []Message{
			{Role: RoleUser, Content: "First question"},
			{Role: RoleAssistant, Content: "First answer"},
			{Role: RoleUser, Content: "Follow-up"},
		},
	})

	prompt := args[len(args)-1]
	assert.Equal(t, "-p", args[len(args)-2])
	assert.Contains(t, prompt, "First question")
	assert.Contains(t, prompt, "Assistant: First answer")
	assert.Contains(t, prompt, "Follow-up")
}

func TestTranscript(t *testing.T) {
	assert.Empty(t, transcript(nil))
	assert.Equal(t, "hi", transcript([]Message{
		{Role: RoleAssistant, Content: "dropped"},
		{Role: RoleUser, Content: "hi"},
	}))
	assert.Equal(t, "a\n\nUser: b", transcript([]Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleUser, Content: "b"},
	}))
}

func TestIsRetryableMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Rate limit exceeded", true},
		{"request timeout", true},
		{"connection timed out", true},
		{"API overloaded", true},
		{"HTTP 503", true},
		{"status 529", true},
		{"invalid API key", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryableMessage(tt.msg), tt.msg)
	}
}

func TestIsRetryableAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, true},
		{"server error", &openai.APIError{HTTPStatusCode: http.StatusBadGateway}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: http.StatusBadRequest}, false},
		{"request error 503", &openai.RequestError{HTTPStatusCode: http.StatusServiceUnavailable, Err: errors.New("x")}, true},
		{"plain error", errors.New("dial tcp: refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableAPIError(tt.err))
		})
	}
}

func TestOpenAI_BuildRequest(t *testing.T) {
	c := NewOpenAI("key", WithModel("qwen-max"), WithTemperature(0.2), WithTopP(0.7), WithMaxTokens(256))

	t.Run("client defaults", func(t *testing.T) {
		req := c.buildRequest(UserRequest("sys", "hello"))
		assert.Equal(t, "qwen-max", req.Model)
		assert.InDelta(t, 0.2, req.Temperature, 1e-6)
		assert.InDelta(t, 0.7, req.TopP, 1e-6)
		assert.Equal(t, 256, req.MaxTokens)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
			assert.Equal(t, "sys", req.Messages[0].Content)
			assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
		}
	})

	t.Run("request overrides", func(t *testing.T) {
		req := c.buildRequest(CompletionRequest{
			Model:       "qwen-turbo",
			TopP:        0.9,
			Temperature: 1,
			MaxTokens:   10,
			Messages:    []Message{{Role: RoleUser, Content: "x"}},
		})
		assert.Equal(t, "qwen-turbo", req.Model)
		assert.InDelta(t, 0.9, req.TopP, 1e-6)
		assert.InDelta(t, 1.0, req.Temperature, 1e-6)
		assert.Equal(t, 10, req.MaxTokens)
		assert.Len(t, req.Messages, 1)
	})
}
