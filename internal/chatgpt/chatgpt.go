// Package chatgpt adapts OpenAI-compatible chat completion APIs to
// llm.Model. It is used when no Gemini key is configured.
package chatgpt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/deusflow/aznews/internal/llm"
)

const DefaultModel = "gpt-4o-mini"

const systemPrompt = "Sən Azərbaycan maliyyə və bank sektoru üzrə analitiksən. Yalnız tələb olunan formatda cavab ver."

type Client struct {
	client *openai.Client
	model  string
}

var _ llm.Model = (*Client)(nil)

// NewClient builds a client. baseURL may point at any compatible server.
func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *Client) Name() string {
	return "openai/" + c.model
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", llm.ErrQuotaExceeded, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", llm.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("chat completion: %w", err)
}
