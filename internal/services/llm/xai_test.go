package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

func fastRetry(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:        maxRetries,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func newTestXAI(t *testing.T, url string) *XAIBackend {
	t.Helper()
	backend, err := NewXAIBackend(&common.XAIConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "grok-test",
		Timeout: "5s",
	}, arbor.NewLogger())
	require.NoError(t, err)
	backend.retry = fastRetry(2)
	return backend
}

func TestXAIBackend_Score(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "grok-test", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "rate the future", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "post: doom", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  Mostly gloom.\nscore:-0.35  "}}]}`))
	}))
	defer server.Close()

	backend := newTestXAI(t, server.URL)
	assert.Equal(t, "xai", backend.Name())
	assert.Equal(t, models.PolicyNeutral, backend.DefaultPolicy())

	reply, err := backend.Score(context.Background(), &interfaces.ScoringRequest{
		Kind:              interfaces.RequestChunk,
		SystemInstruction: "rate the future",
		Text:              "post: doom",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mostly gloom.\nscore:-0.35", reply)
}

func TestXAIBackend_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok score:0.1"}}]}`))
	}))
	defer server.Close()

	reply, err := newTestXAI(t, server.URL).Score(context.Background(), &interfaces.ScoringRequest{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok score:0.1", reply)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestXAIBackend_DoesNotRetryAuthErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	_, err := newTestXAI(t, server.URL).Score(context.Background(), &interfaces.ScoringRequest{Text: "x"})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestXAIBackend_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	backend := newTestXAI(t, server.URL)
	backend.retry = fastRetry(0)
	_, err := backend.Score(context.Background(), &interfaces.ScoringRequest{Text: "x"})
	assert.Error(t, err)
}

func TestNewXAIBackend_RequiresKey(t *testing.T) {
	_, err := NewXAIBackend(&common.XAIConfig{}, arbor.NewLogger())
	assert.Error(t, err)
}
