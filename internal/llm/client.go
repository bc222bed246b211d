// Package llm provides a minimal OpenAI-compatible client used to smoke-check
// resolved fleet endpoints after a provisioning pass.
package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Client abstracts an OpenAI-compatible inference endpoint.
type Client interface {
	// ChatCompletion sends a chat completion request and returns the response.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a simplified chat request.
type ChatRequest struct {
	Model         string
	SystemMessage string
	UserMessage   string
	Temperature   float64
}

// ChatResponse holds the result of a chat completion.
type ChatResponse struct {
	Content string
}

// OpenAIClient implements Client using the OpenAI-compatible API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(opts ...Option) *OpenAIClient {
	cfg := &clientConfig{
		baseURL: "http://localhost:8000/v1",
		apiKey:  "not-needed",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	config := openai.DefaultConfig(cfg.apiKey)
	config.BaseURL = cfg.baseURL

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  cfg.model,
	}
}

// ChatCompletion sends a non-streaming chat completion request.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.SystemMessage},
		{Role: openai.ChatMessageRoleUser, Content: req.UserMessage},
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	return &ChatResponse{
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// Probe sends a trivial completion to verify the endpoint answers at all.
func Probe(ctx context.Context, client Client, model string) error {
	_, err := client.ChatCompletion(ctx, ChatRequest{
		Model:       model,
		UserMessage: "ping",
	})
	return err
}
