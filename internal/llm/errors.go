package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// IsUnavailable reports whether an error looks like a rate-limit, quota, or
// availability problem rather than a permanent failure. Callers substitute a
// canned response for these instead of propagating them.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429, 500, 502, 503, 529:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"rate limit",
		"rate_limit",
		"quota",
		"overloaded",
		"unavailable",
		"too many requests",
		"429",
		"503",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
