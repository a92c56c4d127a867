package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
	"google.golang.org/genai"
)

// GeminiBackend scores text with the Google Gemini API
type GeminiBackend struct {
	config  *common.GeminiConfig
	client  *genai.Client
	timeout time.Duration
	retry   *RetryConfig
	logger  arbor.ILogger
}

// NewGeminiBackend creates the Gemini backend. An API key is required.
func NewGeminiBackend(ctx context.Context, config *common.GeminiConfig, logger arbor.ILogger) (*GeminiBackend, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set PORTENT_GEMINI_API_KEY, GOOGLE_API_KEY or gemini.api_key)")
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	timeout := common.ParseDuration(config.Timeout, 5*time.Minute)

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Gemini scoring backend initialized")

	return &GeminiBackend{
		config:  config,
		client:  client,
		timeout: timeout,
		retry:   NewRetryConfig(config.MaxRetries),
		logger:  logger,
	}, nil
}

func (b *GeminiBackend) Name() string { return "gemini" }

func (b *GeminiBackend) DefaultPolicy() models.FallbackPolicy { return models.PolicyNeutral }

func (b *GeminiBackend) Score(ctx context.Context, request *interfaces.ScoringRequest) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{}
	if b.config.Temperature > 0 {
		config.Temperature = genai.Ptr(b.config.Temperature)
	}
	if request.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemInstruction, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(request.Text, genai.RoleUser)}

	return callWithRetry(timeoutCtx, b.logger, b.Name(), b.retry, func(ctx context.Context) (string, error) {
		resp, err := b.client.Models.GenerateContent(ctx, b.config.Model, contents, config)
		if err != nil {
			return "", fmt.Errorf("Gemini API call failed: %w", err)
		}
		if resp == nil || len(resp.Candidates) == 0 {
			return "", fmt.Errorf("empty response from Gemini API")
		}
		text := resp.Text()
		if text == "" {
			return "", fmt.Errorf("empty text in Gemini response")
		}
		return strings.TrimSpace(text), nil
	})
}

func (b *GeminiBackend) Close() error {
	b.logger.Debug().Msg("Closing Gemini scoring backend")
	b.client = nil
	return nil
}
