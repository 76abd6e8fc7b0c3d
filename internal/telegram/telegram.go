// Package telegram sends HTML messages through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/aznews/internal/logger"
	"github.com/deusflow/aznews/internal/retry"
)

const (
	DefaultBaseURL = "https://api.telegram.org"

	// MaxMessageLength is the Bot API limit for one message, in UTF-16 units.
	MaxMessageLength = 4096
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Retry      retry.RetryConfig
}

// Client is safe for concurrent use.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	retry   retry.RetryConfig
	log     *slog.Logger
}

func New(token string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true, MaxDelay: 30 * time.Second}
	}
	return &Client{
		token:   token,
		baseURL: opts.BaseURL,
		http:    opts.HTTPClient,
		retry:   opts.Retry,
		log:     logger.Component("telegram"),
	}
}

// Enabled reports whether the client has a bot token.
func (c *Client) Enabled() bool {
	return c != nil && c.token != ""
}

// Send delivers text to every chat and returns how many chats received
// all of it. Text longer than MaxMessageLength goes out as numbered parts.
func (c *Client) Send(ctx context.Context, text string, chatIDs []string) int {
	if !c.Enabled() || len(chatIDs) == 0 {
		return 0
	}
	parts := Label(Split(text, MaxMessageLength))

	delivered := 0
	for _, chatID := range chatIDs {
		ok := true
		for i, part := range parts {
			if err := c.SendMessage(ctx, chatID, part); err != nil {
				c.log.Error("failed to send message", "chat_id", chatID, "part", i+1, "parts", len(parts), "error", err)
				ok = false
				break
			}
		}
		if ok {
			delivered++
		}
	}
	c.log.Info("message delivered", "chats", delivered, "of", len(chatIDs), "parts", len(parts))
	return delivered
}

// SendMessage sends one message with retry. Rate limit replies are retried
// after the interval Telegram asks for; other client errors are not retried.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	return retry.WithRetry(ctx, c.retry, func(ctx context.Context) error {
		return c.sendOnce(ctx, chatID, text)
	})
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (c *Client) sendOnce(ctx context.Context, chatID, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("error make JSON: %w", err))
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The error text carries the URL and with it the token.
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		return errors.New("error HTTP request to Telegram API")
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("failed to close response body", "error", err)
		}
	}(resp.Body)

	var api apiResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&api)

	switch {
	case resp.StatusCode == http.StatusOK && api.OK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &retry.Wait{
			After: time.Duration(api.Parameters.RetryAfter) * time.Second,
			Err:   fmt.Errorf("telegram API rate limit: %s", api.Description),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return retry.Permanent(fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, api.Description))
	default:
		return fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, api.Description)
	}
}
