package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DashScopeBaseURL is the OpenAI-compatible endpoint of Alibaba DashScope.
const DashScopeBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// DefaultOpenAIModel is used when neither the client nor the request names a model.
const DefaultOpenAIModel = "qwen-plus"

// OpenAI implements Client against any OpenAI-compatible chat completion API.
type OpenAI struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	topP        float32
	timeout     time.Duration
}

// OpenAIOption configures OpenAI.
type OpenAIOption func(*openAIOptions)

type openAIOptions struct {
	baseURL     string
	model       string
	maxTokens   int
	temperature float32
	topP        float32
	timeout     time.Duration
	httpClient  *http.Client
}

// WithBaseURL points the client at a different OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(o *openAIOptions) { o.baseURL = url }
}

// WithModel sets the default model.
func WithModel(model string) OpenAIOption {
	return func(o *openAIOptions) { o.model = model }
}

// WithMaxTokens sets the default completion token limit.
func WithMaxTokens(n int) OpenAIOption {
	return func(o *openAIOptions) { o.maxTokens = n }
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) OpenAIOption {
	return func(o *openAIOptions) { o.temperature = float32(t) }
}

// WithTopP sets the default nucleus sampling value.
func WithTopP(p float64) OpenAIOption {
	return func(o *openAIOptions) { o.topP = float32(p) }
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(o *openAIOptions) { o.timeout = d }
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *openAIOptions) { o.httpClient = c }
}

// NewOpenAI creates a client authenticated with apiKey.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	o := openAIOptions{
		model:   DefaultOpenAIModel,
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(cfg),
		model:       o.model,
		maxTokens:   o.maxTokens,
		temperature: o.temperature,
		topP:        o.topP,
		timeout:     o.timeout,
	}
}

// Complete implements Client.
func (c *OpenAI) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewError("complete", ctx.Err(), false)
		}
		return nil, NewError("complete", err, isRetryableAPIError(err))
	}

	if len(resp.Choices) == 0 {
		return nil, NewError("complete", ErrEmptyResponse, false)
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Duration:     time.Since(start),
		Usage: TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// buildRequest merges request settings over the client defaults.
func (c *OpenAI) buildRequest(req CompletionRequest) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	if req.Model != "" {
		out.Model = req.Model
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		out.Temperature = float32(req.Temperature)
	}
	if req.TopP > 0 {
		out.TopP = float32(req.TopP)
	}

	if req.SystemPrompt != "" {
		out.Messages = append(out.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}

// isRetryableAPIError reports rate limits and server-side failures as transient.
func isRetryableAPIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
