package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

// ClaudeBackend scores text with the Anthropic Messages API
type ClaudeBackend struct {
	config    *common.ClaudeConfig
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
	retry     *RetryConfig
	logger    arbor.ILogger
}

// NewClaudeBackend creates the Claude backend. An API key is required.
func NewClaudeBackend(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeBackend, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set PORTENT_CLAUDE_API_KEY, ANTHROPIC_API_KEY or claude.api_key)")
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	timeout := common.ParseDuration(config.Timeout, 5*time.Minute)

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	)

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude scoring backend initialized")

	return &ClaudeBackend{
		config:    config,
		client:    client,
		timeout:   timeout,
		maxTokens: maxTokens,
		retry:     NewRetryConfig(config.MaxRetries),
		logger:    logger,
	}, nil
}

func (b *ClaudeBackend) Name() string { return "claude" }

func (b *ClaudeBackend) DefaultPolicy() models.FallbackPolicy { return models.PolicyNeutral }

func (b *ClaudeBackend) Score(ctx context.Context, request *interfaces.ScoringRequest) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.config.Model),
		MaxTokens: int64(b.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Text)),
		},
	}
	if b.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(b.config.Temperature))
	}
	if request.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.SystemInstruction},
		}
	}

	return callWithRetry(timeoutCtx, b.logger, b.Name(), b.retry, func(ctx context.Context) (string, error) {
		resp, err := b.client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("Claude API call failed: %w", err)
		}

		var text strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		if text.Len() == 0 {
			return "", fmt.Errorf("empty response from Claude API")
		}
		return strings.TrimSpace(text.String()), nil
	})
}

func (b *ClaudeBackend) Close() error {
	b.logger.Debug().Msg("Closing Claude scoring backend")
	return nil
}
