package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

type memHistory struct {
	records []models.HistoryRecord
	err     error
}

func (m *memHistory) Append(ctx context.Context, record models.HistoryRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memHistory) ReadAll(ctx context.Context) ([]models.HistoryRecord, error) {
	return m.records, nil
}

func (m *memHistory) ReadLatest(ctx context.Context) (*models.HistoryRecord, error) {
	if len(m.records) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &m.records[len(m.records)-1], nil
}

type memReasoning struct {
	doc *models.ReasoningDocument
	err error
}

func (m *memReasoning) Save(ctx context.Context, doc *models.ReasoningDocument) error {
	if m.err != nil {
		return m.err
	}
	m.doc = doc
	return nil
}

func (m *memReasoning) Get(ctx context.Context) (*models.ReasoningDocument, error) {
	if m.doc == nil {
		return nil, interfaces.ErrNotFound
	}
	return m.doc, nil
}

func score(v float64) *float64 { return &v }

func intro(chunks int) string {
	if chunks == 3 {
		return "Three chunks follow."
	}
	return "Chunks follow."
}

func TestAverage(t *testing.T) {
	avg, n := Average(nil)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, n)

	avg, n = Average([]models.ChunkResult{{Score: nil}, {Score: nil}})
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, n)

	avg, n = Average([]models.ChunkResult{{Score: score(0.5)}, {Score: nil}, {Score: score(-0.1)}})
	assert.InDelta(t, 0.2, avg, 1e-9)
	assert.Equal(t, 2, n)
}

func TestAverage_ChunkOrderInvariant(t *testing.T) {
	chunks := []models.ChunkResult{
		{Index: 1, Score: score(0.7)},
		{Index: 2, Score: nil},
		{Index: 3, Score: score(-0.3)},
		{Index: 4, Score: score(0.1)},
	}
	want, wantN := Average(chunks)
	assert.InDelta(t, 0.5/3, want, 1e-9)
	assert.Equal(t, 3, wantN)

	permutations := [][]int{
		{3, 2, 1, 0},
		{1, 3, 0, 2},
		{2, 0, 3, 1},
		{0, 3, 1, 2},
	}
	for _, order := range permutations {
		permuted := make([]models.ChunkResult, len(order))
		for i, j := range order {
			permuted[i] = chunks[j]
		}
		got, n := Average(permuted)
		assert.InDelta(t, want, got, 1e-12, "order %v", order)
		assert.Equal(t, wantN, n, "order %v", order)
	}
}

func TestRecord_AppendsHistoryAndWritesReasoning(t *testing.T) {
	history := &memHistory{}
	reasoning := &memReasoning{}
	svc := NewService(history, reasoning, intro, arbor.NewLogger())
	fixed := time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	outcome := &models.ClassificationOutcome{
		RunID:      "run-1",
		Backend:    "xai",
		Policy:     models.PolicyOmit,
		TotalPosts: 30,
		Chunks: []models.ChunkResult{
			{Index: 1, Score: score(0.4), Explanation: "Hopeful about space."},
			{Index: 2, Score: nil, Explanation: "Unrateable.", Fallback: true},
			{Index: 3, Score: score(-0.1)},
		},
	}

	result, err := svc.Record(context.Background(), outcome)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, result.AverageScore, 1e-9)
	assert.Equal(t, 30, result.TotalPostCount)
	assert.Equal(t, 3, result.ChunkCount)
	assert.Equal(t, 2, result.ContributingChunks)
	assert.Equal(t, "run-1", result.RunID)

	require.Len(t, history.records, 1)
	assert.InDelta(t, 0.15, history.records[0].Score, 1e-9)
	assert.Equal(t, fixed, history.records[0].Timestamp)

	expected := "Score: 0.15\n\n" +
		"Three chunks follow.\n\n" +
		"Chunk 1. Score: 0.40, Hopeful about space.\n\n" +
		"Chunk 2. Score: n/a, Unrateable.\n\n" +
		"Chunk 3. Score: -0.10, no explanation returned"
	require.NotNil(t, reasoning.doc)
	assert.Equal(t, expected, reasoning.doc.Text)
	assert.Equal(t, "run-1", reasoning.doc.RunID)
}

func TestBuildReasoning_SynthesisFirst(t *testing.T) {
	svc := NewService(&memHistory{}, &memReasoning{}, intro, arbor.NewLogger())
	text := svc.BuildReasoning(0.5, &models.ClassificationOutcome{
		Synthesis: "Narrative synthesis unavailable for this run.",
		Chunks:    []models.ChunkResult{{Index: 1, Score: score(0.5), Explanation: "Fine."}},
	})
	assert.Equal(t, "Narrative synthesis unavailable for this run.\n\nScore: 0.50\n\nChunks follow.\n\nChunk 1. Score: 0.50, Fine.", text)
}

func TestRecord_PersistenceErrors(t *testing.T) {
	outcome := &models.ClassificationOutcome{Chunks: []models.ChunkResult{{Index: 1, Score: score(0.1)}}}

	svc := NewService(&memHistory{err: errors.New("disk full")}, &memReasoning{}, intro, arbor.NewLogger())
	_, err := svc.Record(context.Background(), outcome)
	var pe *interfaces.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "history", pe.Op)

	history := &memHistory{}
	svc = NewService(history, &memReasoning{err: errors.New("read-only")}, intro, arbor.NewLogger())
	_, err = svc.Record(context.Background(), outcome)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "reasoning", pe.Op)
	assert.Len(t, history.records, 1)
}
