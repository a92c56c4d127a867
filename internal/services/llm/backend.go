// Package llm provides the scoring backends the chunk classifier talks to
package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
)

// NewBackend creates the scoring backend named by classifier.backend
func NewBackend(ctx context.Context, config *common.Config, logger arbor.ILogger) (interfaces.ScoringBackend, error) {
	logger.Info().Str("backend", config.Classifier.Backend).Msg("Initializing scoring backend")

	var (
		backend interfaces.ScoringBackend
		err     error
	)
	switch config.Classifier.Backend {
	case "xai":
		backend, err = NewXAIBackend(&config.XAI, logger)
	case "claude":
		backend, err = NewClaudeBackend(&config.Claude, logger)
	case "gemini":
		backend, err = NewGeminiBackend(ctx, &config.Gemini, logger)
	case "zeroshot":
		backend, err = NewZeroShotBackend(&config.ZeroShot, logger)
	default:
		return nil, fmt.Errorf("unsupported scoring backend: %s", config.Classifier.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", config.Classifier.Backend, err)
	}
	return backend, nil
}
