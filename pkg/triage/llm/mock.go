package llm

import (
	"context"
	"sync"
)

// MockClient returns canned responses in order, repeating the last one.
// It records every request it receives.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []CompletionRequest
	respond   func(CompletionRequest) (string, error)
}

// NewMockClient creates a mock that always answers content.
func NewMockClient(content string) *MockClient {
	return &MockClient{responses: []string{content}}
}

// WithResponses replaces the canned responses.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFunc answers each request with fn.
func (m *MockClient) WithFunc(fn func(CompletionRequest) (string, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respond = fn
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError("complete", err, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.calls)
	m.calls = append(m.calls, req)

	if m.err != nil {
		return nil, m.err
	}
	if m.respond != nil {
		content, err := m.respond(req)
		if err != nil {
			return nil, err
		}
		return &CompletionResponse{Content: content, Model: "mock", FinishReason: "stop"}, nil
	}
	if len(m.responses) == 0 {
		return nil, NewError("complete", ErrEmptyResponse, false)
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return &CompletionResponse{Content: m.responses[idx], Model: "mock", FinishReason: "stop"}, nil
}

// CallCount returns the number of Complete calls.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns the requests received so far.
func (m *MockClient) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}
