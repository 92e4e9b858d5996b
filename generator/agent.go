package generator

import (
	"context"
	"errors"
	"time"
)

// DefaultRequestTimeout bounds a single model call.
const DefaultRequestTimeout = 60 * time.Second

// Agent wraps an LLMClient with the per-request timeout and JSON decoding
// every stage needs.
type Agent struct {
	llm     LLMClient
	timeout time.Duration
}

func NewAgent(llm LLMClient) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm, timeout: DefaultRequestTimeout}, nil
}

// WithTimeout returns a copy using d as the request timeout.
func (a *Agent) WithTimeout(d time.Duration) *Agent {
	cp := *a
	if d > 0 {
		cp.timeout = d
	}
	return &cp
}

// Complete runs one request under the request timeout.
func (a *Agent) Complete(ctx context.Context, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.llm.Complete(ctx, prompt)
}

// Generate completes the prompt and decodes the JSON answer into v. The raw
// response is returned even when decoding fails.
func (a *Agent) Generate(ctx context.Context, prompt Prompt, v any) (string, error) {
	raw, err := a.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return raw, DecodeJSON(raw, v)
}
