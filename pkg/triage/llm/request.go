package llm

import "time"

// Role names the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a chat completion call. Zero sampling fields leave
// the client's configured defaults in place.
type CompletionRequest struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
	Model        string    `json:"model,omitempty"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
	Temperature  float64   `json:"temperature,omitempty"`
	TopP         float64   `json:"top_p,omitempty"`
}

// UserRequest asks a single question under an optional system prompt.
func UserRequest(systemPrompt, text string) CompletionRequest {
	return CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []Message{{Role: RoleUser, Content: text}},
	}
}

// CompletionResponse carries the answer text and call accounting.
type CompletionResponse struct {
	Content      string        `json:"content"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason"`
	Usage        TokenUsage    `json:"usage"`
	Duration     time.Duration `json:"duration"`
}

// TokenUsage counts tokens as reported by the provider. Clients that cannot
// see token counts leave it zero.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
