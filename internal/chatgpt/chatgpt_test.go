package chatgpt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deusflow/aznews/internal/llm"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	seen := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		seen <- body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini",
"choices":[{"index":0,"message":{"role":"assistant","content":"  1, 3, 4 \n"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "")
	got, err := c.Generate(context.Background(), "hansı xəbərlər bankla bağlıdır?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "1, 3, 4" {
		t.Errorf("Generate = %q", got)
	}
	body := <-seen
	if body["model"] != DefaultModel {
		t.Errorf("model = %v", body["model"])
	}
	if c.Name() != "openai/gpt-4o-mini" {
		t.Errorf("Name = %q", c.Name())
	}
}

func TestGenerateQuota(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL, "m").Generate(context.Background(), "x")
	if !errors.Is(err, llm.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestGenerateEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL, "m").Generate(context.Background(), "x")
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
}
