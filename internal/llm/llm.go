// Package llm defines the text-generation contract shared by the model
// providers and the errors callers branch on.
package llm

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrQuotaExceeded means the provider refused the call for quota or
	// rate reasons. Retrying within the same run is pointless.
	ErrQuotaExceeded = errors.New("llm quota exceeded")
	// ErrEmptyResponse means the provider answered without text.
	ErrEmptyResponse = errors.New("llm returned empty response")
)

// Model turns a prompt into text.
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

var quotaMarkers = []string{"429", "quota", "resource_exhausted", "resource exhausted", "rate limit", "too many requests"}

// IsQuota reports whether err signals quota exhaustion, either wrapped
// ErrQuotaExceeded or a provider message carrying a known marker.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
