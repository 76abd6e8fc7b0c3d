// Package gemini adapts the Gemini API to llm.Model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/deusflow/aznews/internal/llm"
)

const DefaultModel = "gemini-flash-latest"

type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

var _ llm.Model = (*Client)(nil)

func NewClient(ctx context.Context, apiKey, modelName string, opts ...option.ClientOption) (*Client, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)

	return &Client{client: client, model: model, name: modelName}, nil
}

func (c *Client) Name() string {
	return "gemini/" + c.name
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Generate sends one prompt and returns the concatenated text parts of the
// first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classify(err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}

// classify maps quota signals from either transport onto llm.ErrQuotaExceeded.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", llm.ErrQuotaExceeded, err)
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return fmt.Errorf("%w: %v", llm.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("failed to generate content: %w", err)
}
