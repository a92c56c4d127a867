// Package aggregator reduces chunk scores to one pass score, appends it to
// the history and rebuilds the reasoning document
package aggregator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

const noExplanation = "no explanation returned"

// IntroFunc renders the reasoning intro for a pass with the given chunk count
type IntroFunc func(chunks int) string

// Service is the aggregator
type Service struct {
	history   interfaces.HistoryStorage
	reasoning interfaces.ReasoningStorage
	intro     IntroFunc
	now       func() time.Time
	logger    arbor.ILogger
}

// NewService creates an aggregator writing to the given stores
func NewService(history interfaces.HistoryStorage, reasoning interfaces.ReasoningStorage, intro IntroFunc, logger arbor.ILogger) *Service {
	return &Service{
		history:   history,
		reasoning: reasoning,
		intro:     intro,
		now:       time.Now,
		logger:    logger,
	}
}

// Average is the mean of the contributing chunk scores, 0 when none contribute
func Average(chunks []models.ChunkResult) (float64, int) {
	sum := 0.0
	n := 0
	for _, c := range chunks {
		if !c.Contributes() {
			continue
		}
		sum += *c.Score
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// Record appends the pass score to the history and overwrites the reasoning document.
// Either write failing returns a PersistenceError.
func (s *Service) Record(ctx context.Context, outcome *models.ClassificationOutcome) (*models.AggregateResult, error) {
	average, contributing := Average(outcome.Chunks)
	timestamp := s.now()

	if err := s.history.Append(ctx, models.HistoryRecord{Score: average, Timestamp: timestamp}); err != nil {
		return nil, &interfaces.PersistenceError{Op: "history", Err: err}
	}

	doc := &models.ReasoningDocument{
		RunID:     outcome.RunID,
		Text:      s.BuildReasoning(average, outcome),
		UpdatedAt: timestamp,
	}
	if err := s.reasoning.Save(ctx, doc); err != nil {
		return nil, &interfaces.PersistenceError{Op: "reasoning", Err: err}
	}

	s.logger.Info().
		Str("run_id", outcome.RunID).
		Float64("average", average).
		Int("chunks", len(outcome.Chunks)).
		Int("contributing", contributing).
		Msg("Pass score recorded")

	return &models.AggregateResult{
		RunID:              outcome.RunID,
		AverageScore:       average,
		TotalPostCount:     outcome.TotalPosts,
		ChunkCount:         len(outcome.Chunks),
		ContributingChunks: contributing,
		Backend:            outcome.Backend,
		Policy:             outcome.Policy,
		Timestamp:          timestamp,
	}, nil
}

// BuildReasoning renders the reasoning document: optional synthesis, the score
// line and intro, then one block per chunk in chunk order
func (s *Service) BuildReasoning(average float64, outcome *models.ClassificationOutcome) string {
	var sb strings.Builder

	if outcome.Synthesis != "" {
		sb.WriteString(outcome.Synthesis)
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "Score: %.2f\n\n", average)
	if s.intro != nil {
		if intro := s.intro(len(outcome.Chunks)); intro != "" {
			sb.WriteString(intro)
			sb.WriteString("\n\n")
		}
	}

	blocks := make([]string, 0, len(outcome.Chunks))
	for _, c := range outcome.Chunks {
		score := "n/a"
		if c.Score != nil {
			score = fmt.Sprintf("%.2f", *c.Score)
		}
		explanation := c.Explanation
		if explanation == "" {
			explanation = noExplanation
		}
		blocks = append(blocks, fmt.Sprintf("Chunk %d. Score: %s, %s", c.Index, score, explanation))
	}
	sb.WriteString(strings.Join(blocks, "\n\n"))

	return strings.TrimRight(sb.String(), "\n")
}
