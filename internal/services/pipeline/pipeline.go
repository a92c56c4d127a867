// Package pipeline runs one full pass: fetch, build corpus, classify, publish
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
	"github.com/ternarybob/portent/internal/services/collector"
)

// Collector is the fetch stage
type Collector interface {
	FetchCatalogs(ctx context.Context) collector.Report
	FetchThreads(ctx context.Context) collector.Report
}

// CorpusBuilder is the corpus stage
type CorpusBuilder interface {
	Build(ctx context.Context, mode models.ClassificationMode) ([]string, error)
}

// Classifier is the scoring stage; it records history and reasoning itself
type Classifier interface {
	Classify(ctx context.Context, runID string, posts []string) (*models.AggregateResult, error)
}

// Runner implements interfaces.PassRunner
type Runner struct {
	collector  Collector
	corpus     CorpusBuilder
	classifier Classifier
	results    interfaces.ResultStorage
	mode       models.ClassificationMode
	logger     arbor.ILogger
}

// NewRunner creates a pass runner for the given classification mode
func NewRunner(collector Collector, corpus CorpusBuilder, classifier Classifier, results interfaces.ResultStorage, mode models.ClassificationMode, logger arbor.ILogger) *Runner {
	return &Runner{
		collector:  collector,
		corpus:     corpus,
		classifier: classifier,
		results:    results,
		mode:       mode,
		logger:     logger,
	}
}

// Run executes one pass under a fresh run id. A pass over an empty corpus
// returns a zero result and leaves the latest-result slot untouched.
func (r *Runner) Run(ctx context.Context) (*models.AggregateResult, error) {
	runID := uuid.New().String()
	start := time.Now()

	r.logger.Info().Str("run_id", runID).Str("mode", string(r.mode)).Msg("Pipeline pass started")

	catalogs := r.collector.FetchCatalogs(ctx)
	r.logger.Debug().
		Str("run_id", runID).
		Int("fetched", catalogs.Fetched).
		Int("failures", catalogs.Failures).
		Dur("duration", catalogs.Duration).
		Msg("Catalog stage complete")

	if r.mode.UsesThreads() {
		threads := r.collector.FetchThreads(ctx)
		r.logger.Debug().
			Str("run_id", runID).
			Int("fetched", threads.Fetched).
			Int("failures", threads.Failures).
			Dur("duration", threads.Duration).
			Msg("Thread stage complete")
	}

	posts, err := r.corpus.Build(ctx, r.mode)
	if err != nil {
		return nil, fmt.Errorf("build corpus: %w", err)
	}

	result, err := r.classifier.Classify(ctx, runID, posts)
	if err != nil {
		return nil, fmt.Errorf("classify corpus: %w", err)
	}
	result.RunID = runID
	result.Mode = string(r.mode)

	if result.TotalPostCount == 0 {
		r.logger.Warn().Str("run_id", runID).Msg("Empty corpus, latest result not updated")
		return result, nil
	}

	if err := r.results.SaveLatest(ctx, result); err != nil {
		return nil, &interfaces.PersistenceError{Op: "latest result", Err: err}
	}

	r.logger.Info().
		Str("run_id", runID).
		Float64("average", result.AverageScore).
		Int("posts", result.TotalPostCount).
		Dur("duration", time.Since(start)).
		Msg("Pipeline pass complete")

	return result, nil
}
