// Package classifier splits a corpus into chunks, scores each chunk with the
// configured backend and hands the outcome to the aggregator
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

// SynthesisUnavailable replaces the narrative when the synthesis call fails
const SynthesisUnavailable = "Narrative synthesis unavailable for this run."

// Recorder persists a classification outcome and returns its summary
type Recorder interface {
	Record(ctx context.Context, outcome *models.ClassificationOutcome) (*models.AggregateResult, error)
}

// Options tune a classification pass
type Options struct {
	Chunks    int
	Policy    models.FallbackPolicy // Empty selects the backend default
	Narrative bool
}

// Service is the chunk classifier
type Service struct {
	backend   interfaces.ScoringBackend
	recorder  Recorder
	prompts   *Prompts
	chunks    int
	policy    models.FallbackPolicy
	narrative bool
	logger    arbor.ILogger
}

// NewService creates a chunk classifier
func NewService(backend interfaces.ScoringBackend, recorder Recorder, prompts *Prompts, opts Options, logger arbor.ILogger) *Service {
	policy := opts.Policy
	if policy == "" {
		policy = backend.DefaultPolicy()
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	chunks := opts.Chunks
	if chunks < 1 {
		chunks = 1
	}

	logger.Info().
		Str("backend", backend.Name()).
		Str("policy", string(policy)).
		Int("chunks", chunks).
		Bool("narrative", opts.Narrative).
		Msg("Chunk classifier configured")

	return &Service{
		backend:   backend,
		recorder:  recorder,
		prompts:   prompts,
		chunks:    chunks,
		policy:    policy,
		narrative: opts.Narrative,
		logger:    logger,
	}
}

// Policy returns the fallback policy in effect
func (s *Service) Policy() models.FallbackPolicy {
	return s.policy
}

// Classify scores posts chunk by chunk and records the outcome.
// An empty corpus returns a zero result and records nothing.
func (s *Service) Classify(ctx context.Context, runID string, posts []string) (*models.AggregateResult, error) {
	if len(posts) == 0 {
		s.logger.Warn().Str("run_id", runID).Msg("Empty corpus, nothing to classify")
		return &models.AggregateResult{
			RunID:     runID,
			Backend:   s.backend.Name(),
			Policy:    s.policy,
			Timestamp: time.Now(),
		}, nil
	}

	startTime := time.Now()
	chunks := Chunk(posts, s.chunks)

	s.logger.Info().
		Str("run_id", runID).
		Int("posts", len(posts)).
		Int("chunks", len(chunks)).
		Msg("Classifying corpus")

	results := make([]models.ChunkResult, 0, len(chunks))
	for i, chunk := range chunks {
		results = append(results, s.scoreChunk(ctx, runID, i+1, chunk))
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("classification interrupted after chunk %d: %w", i+1, err)
		}
	}

	outcome := &models.ClassificationOutcome{
		RunID:      runID,
		Backend:    s.backend.Name(),
		Policy:     s.policy,
		TotalPosts: len(posts),
		Chunks:     results,
	}
	if s.narrative {
		outcome.Synthesis = s.synthesize(ctx, runID, results)
	}

	result, err := s.recorder.Record(ctx, outcome)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("run_id", runID).
		Float64("average", result.AverageScore).
		Int("contributing", result.ContributingChunks).
		Dur("duration", time.Since(startTime)).
		Msg("Classification complete")

	return result, nil
}

func (s *Service) scoreChunk(ctx context.Context, runID string, index int, posts []string) models.ChunkResult {
	result := models.ChunkResult{Index: index, PostCount: len(posts)}

	reply, err := s.backend.Score(ctx, &interfaces.ScoringRequest{
		Kind:              interfaces.RequestChunk,
		SystemInstruction: s.prompts.System,
		Text:              ChunkText(posts),
		Posts:             posts,
	})
	if err != nil {
		unavailable := &interfaces.BackendUnavailableError{Backend: s.backend.Name(), Err: err}
		s.logger.Warn().Str("run_id", runID).Int("chunk", index).Err(unavailable).Msg("Chunk scoring failed")
		return s.fallback(result, unavailable)
	}

	score, explanation, err := ParseScore(reply)
	result.Explanation = explanation
	if err != nil {
		var malformed *interfaces.MalformedResponseError
		if errors.As(err, &malformed) {
			malformed.Chunk = index
			if isMissingMarker(malformed) {
				result.Explanation = strings.TrimSpace(reply)
			}
		}
		s.logger.Warn().Str("run_id", runID).Int("chunk", index).Err(err).Msg("Chunk reply has no usable score")
		return s.fallback(result, err)
	}

	result.Score = &score
	s.logger.Debug().Str("run_id", runID).Int("chunk", index).Float64("score", score).Msg("Chunk scored")
	return result
}

// fallback applies the policy to a chunk without a usable score
func (s *Service) fallback(result models.ChunkResult, cause error) models.ChunkResult {
	result.Fallback = true
	result.Error = cause.Error()
	if s.policy == models.PolicyNeutral {
		neutral := 0.0
		result.Score = &neutral
	}
	return result
}

// synthesize asks the backend for a narrative over the chunk explanations.
// Any failure yields the SynthesisUnavailable placeholder.
func (s *Service) synthesize(ctx context.Context, runID string, results []models.ChunkResult) string {
	var sb strings.Builder
	for _, r := range results {
		if r.Explanation == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		score := "n/a"
		if r.Score != nil {
			score = fmt.Sprintf("%.2f", *r.Score)
		}
		fmt.Fprintf(&sb, "Chunk %d (score %s): %s", r.Index, score, r.Explanation)
	}
	if sb.Len() == 0 {
		s.logger.Warn().Str("run_id", runID).Msg("No chunk explanations to synthesize")
		return SynthesisUnavailable
	}

	reply, err := s.backend.Score(ctx, &interfaces.ScoringRequest{
		Kind:              interfaces.RequestSynthesis,
		SystemInstruction: s.prompts.Synthesis,
		Text:              sb.String(),
	})
	if err != nil {
		s.logger.Warn().Str("run_id", runID).Err(err).Msg("Narrative synthesis failed")
		return SynthesisUnavailable
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return SynthesisUnavailable
	}
	return reply
}
