package testutil

import (
	"context"

	"github.com/giantswarm/llm-fleet/internal/llm"
)

// MockLLMClient is a canned-response llm.Client for tests.
type MockLLMClient struct {
	// Response is returned for every request unless Err is set.
	Response string
	Err      error

	// Requests records every request received, in order.
	Requests []llm.ChatRequest
}

// ChatCompletion records the request and returns the canned response.
func (m *MockLLMClient) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &llm.ChatResponse{Content: m.Response}, nil
}
