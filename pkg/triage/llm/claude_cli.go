package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultClaudeTimeout bounds one CLI invocation when no timeout is set.
const DefaultClaudeTimeout = 2 * time.Minute

// transientMarkers are stderr fragments (lower case) worth retrying.
var transientMarkers = []string{"rate limit", "timeout", "timed out", "overloaded", "503", "529"}

// ClaudeCLI answers completions by running the claude binary in print mode.
// Each call starts a fresh process; the zero value is not usable.
type ClaudeCLI struct {
	bin     string
	model   string
	dir     string
	timeout time.Duration
}

// ClaudeOption configures ClaudeCLI.
type ClaudeOption func(*ClaudeCLI)

// NewClaudeCLI looks the binary up as "claude" on PATH unless WithClaudePath
// says otherwise.
func NewClaudeCLI(opts ...ClaudeOption) *ClaudeCLI {
	c := &ClaudeCLI{bin: "claude", timeout: DefaultClaudeTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithClaudePath sets the binary. Empty keeps the default.
func WithClaudePath(path string) ClaudeOption {
	return func(c *ClaudeCLI) {
		if path != "" {
			c.bin = path
		}
	}
}

// WithClaudeModel sets the model used when a request names none.
func WithClaudeModel(model string) ClaudeOption {
	return func(c *ClaudeCLI) { c.model = model }
}

// WithWorkdir runs the binary in dir.
func WithWorkdir(dir string) ClaudeOption {
	return func(c *ClaudeCLI) { c.dir = dir }
}

// WithClaudeTimeout bounds each invocation. Zero or less keeps the default.
func WithClaudeTimeout(d time.Duration) ClaudeOption {
	return func(c *ClaudeCLI) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Complete implements Client. Stdout, trimmed, is the answer.
func (c *ClaudeCLI) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.bin, c.buildArgs(req)...)
	cmd.Dir = c.dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	began := time.Now()
	if err := cmd.Run(); err != nil {
		if cause := ctx.Err(); cause != nil {
			return nil, NewError("complete", cause, false)
		}
		detail := strings.TrimSpace(stderr.String())
		return nil, NewError("complete", fmt.Errorf("%s: %w: %s", c.bin, err, detail), isRetryableMessage(detail))
	}

	return &CompletionResponse{
		Content:      strings.TrimSpace(stdout.String()),
		Model:        c.modelFor(req),
		FinishReason: "stop",
		Duration:     time.Since(began),
	}, nil
}

func (c *ClaudeCLI) modelFor(req CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return c.model
}

// buildArgs maps a request onto print-mode flags. The prompt goes last.
func (c *ClaudeCLI) buildArgs(req CompletionRequest) []string {
	args := []string{"--print"}
	if req.SystemPrompt != "" {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}
	if model := c.modelFor(req); model != "" {
		args = append(args, "--model", model)
	}
	if req.MaxTokens > 0 {
		args = append(args, "--max-tokens", strconv.Itoa(req.MaxTokens))
	}
	if prompt := transcript(req.Messages); prompt != "" {
		args = append(args, "-p", prompt)
	}
	return args
}

// transcript folds a conversation into the single prompt the CLI accepts.
// Assistant turns before the first user turn are dropped.
func transcript(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case RoleUser:
			if b.Len() > 0 {
				b.WriteString("\n\nUser: ")
			}
			b.WriteString(m.Content)
		case RoleAssistant:
			if b.Len() > 0 {
				b.WriteString("\n\nAssistant: ")
				b.WriteString(m.Content)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func isRetryableMessage(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range transientMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
