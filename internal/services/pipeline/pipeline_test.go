package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
	"github.com/ternarybob/portent/internal/services/collector"
)

type fakeCollector struct {
	catalogs int
	threads  int
}

func (f *fakeCollector) FetchCatalogs(ctx context.Context) collector.Report {
	f.catalogs++
	return collector.Report{Boards: 2, Fetched: 2}
}

func (f *fakeCollector) FetchThreads(ctx context.Context) collector.Report {
	f.threads++
	return collector.Report{Boards: 2, Fetched: 40}
}

type fakeCorpus struct {
	posts []string
	mode  models.ClassificationMode
}

func (f *fakeCorpus) Build(ctx context.Context, mode models.ClassificationMode) ([]string, error) {
	f.mode = mode
	return f.posts, nil
}

type fakeClassifier struct {
	runID string
}

func (f *fakeClassifier) Classify(ctx context.Context, runID string, posts []string) (*models.AggregateResult, error) {
	f.runID = runID
	return &models.AggregateResult{AverageScore: 0.3, TotalPostCount: len(posts)}, nil
}

type memResults struct {
	latest *models.AggregateResult
	err    error
}

func (m *memResults) SaveLatest(ctx context.Context, result *models.AggregateResult) error {
	if m.err != nil {
		return m.err
	}
	m.latest = result
	return nil
}

func (m *memResults) GetLatest(ctx context.Context) (*models.AggregateResult, error) {
	if m.latest == nil {
		return nil, interfaces.ErrNotFound
	}
	return m.latest, nil
}

func TestRun_CatalogMode(t *testing.T) {
	coll := &fakeCollector{}
	corpus := &fakeCorpus{posts: []string{"a", "b"}}
	classifier := &fakeClassifier{}
	results := &memResults{}

	runner := NewRunner(coll, corpus, classifier, results, models.ModeCatalog, arbor.NewLogger())
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, coll.catalogs)
	assert.Equal(t, 0, coll.threads)
	assert.Equal(t, models.ModeCatalog, corpus.mode)
	assert.NotEmpty(t, classifier.runID)
	assert.Equal(t, classifier.runID, result.RunID)
	assert.Equal(t, "catalog", result.Mode)

	require.NotNil(t, results.latest)
	assert.Equal(t, 0.3, results.latest.AverageScore)
	assert.Equal(t, 2, results.latest.TotalPostCount)
}

func TestRun_AllModeFetchesThreads(t *testing.T) {
	coll := &fakeCollector{}
	runner := NewRunner(coll, &fakeCorpus{posts: []string{"a"}}, &fakeClassifier{}, &memResults{}, models.ModeAll, arbor.NewLogger())
	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, coll.threads)
}

func TestRun_EmptyCorpusKeepsLatest(t *testing.T) {
	previous := &models.AggregateResult{RunID: "old", AverageScore: -0.4, TotalPostCount: 50}
	results := &memResults{latest: previous}

	runner := NewRunner(&fakeCollector{}, &fakeCorpus{}, &fakeClassifier{}, results, models.ModeCatalog, arbor.NewLogger())
	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalPostCount)
	assert.Same(t, previous, results.latest)
}

func TestRun_LatestWriteFailure(t *testing.T) {
	results := &memResults{err: errors.New("disk full")}
	runner := NewRunner(&fakeCollector{}, &fakeCorpus{posts: []string{"a"}}, &fakeClassifier{}, results, models.ModeCatalog, arbor.NewLogger())

	_, err := runner.Run(context.Background())
	var pe *interfaces.PersistenceError
	assert.ErrorAs(t, err, &pe)
}

func TestRun_RunIDsAreUnique(t *testing.T) {
	classifier := &fakeClassifier{}
	runner := NewRunner(&fakeCollector{}, &fakeCorpus{posts: []string{"a"}}, classifier, &memResults{}, models.ModeCatalog, arbor.NewLogger())

	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	first := classifier.runID

	_, err = runner.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, classifier.runID)
}
