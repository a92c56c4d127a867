package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

// StatusError is a non-2xx reply from an HTTP scoring endpoint
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

func newStatusError(resp *http.Response, body []byte) *StatusError {
	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
	if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
		statusErr.RetryAfter = time.Duration(seconds) * time.Second
	}
	if len(statusErr.Body) > 512 {
		statusErr.Body = statusErr.Body[:512]
	}
	return statusErr
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// XAIBackend scores text through the OpenAI-compatible x.ai chat completions API
type XAIBackend struct {
	config  *common.XAIConfig
	client  *http.Client
	timeout time.Duration
	retry   *RetryConfig
	logger  arbor.ILogger
}

// NewXAIBackend creates the x.ai backend. An API key is required.
func NewXAIBackend(config *common.XAIConfig, logger arbor.ILogger) (*XAIBackend, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("x.ai API key is required (set PORTENT_XAI_API_KEY, GROK_API_KEY or xai.api_key)")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.x.ai/v1"
	}

	timeout := common.ParseDuration(config.Timeout, 5*time.Minute)

	logger.Debug().
		Str("model", config.Model).
		Str("base_url", config.BaseURL).
		Dur("timeout", timeout).
		Msg("x.ai scoring backend initialized")

	return &XAIBackend{
		config:  config,
		client:  &http.Client{},
		timeout: timeout,
		retry:   NewRetryConfig(config.MaxRetries),
		logger:  logger,
	}, nil
}

func (b *XAIBackend) Name() string { return "xai" }

func (b *XAIBackend) DefaultPolicy() models.FallbackPolicy { return models.PolicyNeutral }

// Score sends the instruction and text as one system and one user message
func (b *XAIBackend) Score(ctx context.Context, request *interfaces.ScoringRequest) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	payload := chatCompletionRequest{
		Model: b.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: request.SystemInstruction},
			{Role: "user", Content: request.Text},
		},
	}
	if b.config.Temperature > 0 {
		temp := b.config.Temperature
		payload.Temperature = &temp
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	return callWithRetry(timeoutCtx, b.logger, b.Name(), b.retry, func(ctx context.Context) (string, error) {
		return b.complete(ctx, body)
	})
}

func (b *XAIBackend) complete(ctx context.Context, body []byte) (string, error) {
	endpoint := strings.TrimRight(b.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newStatusError(resp, respBody)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("x.ai returned empty choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (b *XAIBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
