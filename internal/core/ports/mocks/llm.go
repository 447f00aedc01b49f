package mocks

import (
	"context"
	"sync"

	"github.com/lueurxax/feed-digest/internal/core/ports"
)

var _ ports.LLMCaller = (*LLMCaller)(nil)

// LLMResponse is a queued LLMCaller result.
type LLMResponse struct {
	Text string
	Err  error
}

// LLMCaller is a thread-safe implementation of ports.LLMCaller that replays
// queued responses in order.
type LLMCaller struct {
	mu        sync.Mutex
	responses []LLMResponse
	requests  []ports.CallRequest

	// NotConfigured makes Configured report false.
	NotConfigured bool

	// CallFn allows overriding Call behavior.
	CallFn func(ctx context.Context, req ports.CallRequest) (string, error)
}

// NewLLMCaller creates a mock caller that returns responses in order.
func NewLLMCaller(responses ...LLMResponse) *LLMCaller {
	return &LLMCaller{responses: responses}
}

// Enqueue appends responses to the replay queue.
func (c *LLMCaller) Enqueue(responses ...LLMResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.responses = append(c.responses, responses...)
}

// Call records req and returns the next queued response.
func (c *LLMCaller) Call(ctx context.Context, req ports.CallRequest) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)

	if c.CallFn != nil {
		c.mu.Unlock()
		return c.CallFn(ctx, req)
	}

	defer c.mu.Unlock()

	if len(c.responses) == 0 {
		return "", ErrNoResponse
	}

	next := c.responses[0]
	c.responses = c.responses[1:]

	return next.Text, next.Err
}

// Configured reports whether the caller is usable.
func (c *LLMCaller) Configured() bool {
	return !c.NotConfigured
}

// Requests returns the requests received so far.
func (c *LLMCaller) Requests() []ports.CallRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]ports.CallRequest(nil), c.requests...)
}
