package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status 429", &StatusError{StatusCode: 429}, true},
		{"status 500", &StatusError{StatusCode: 500}, false},
		{"wrapped status", fmt.Errorf("call: %w", &StatusError{StatusCode: 429}), true},
		{"gemini exhausted", errors.New("Error 429, Status: RESOURCE_EXHAUSTED"), true},
		{"anthropic", errors.New(`{"type":"rate_limit_error"}`), true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimitError(tt.err))
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(nil))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("boom")))
	assert.Equal(t, 45500*time.Millisecond, ExtractRetryDelay(errors.New("Please retry in 45.5s., Status: RESOURCE_EXHAUSTED")))
	assert.Equal(t, 7*time.Second, ExtractRetryDelay(&StatusError{StatusCode: 429, RetryAfter: 7 * time.Second}))
}

func TestCalculateBackoff(t *testing.T) {
	cfg := &RetryConfig{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, BackoffMultiplier: 2}
	assert.Equal(t, time.Second, cfg.CalculateBackoff(0, 0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1, 0))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2, 0))
	assert.Equal(t, 5*time.Second, cfg.CalculateBackoff(5, 0))
	assert.Equal(t, 3*time.Second, cfg.CalculateBackoff(0, 3*time.Second))
}

func TestCallWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := callWithRetry(context.Background(), arbor.NewLogger(), "test", fastRetry(2), func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("transient")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}
