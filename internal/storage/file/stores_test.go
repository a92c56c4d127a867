package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

func newTestManager(t *testing.T) (interfaces.StorageManager, string) {
	t.Helper()
	dir := t.TempDir()
	manager, err := NewManager(arbor.NewLogger(), &common.FileConfig{Dir: dir})
	require.NoError(t, err)
	return manager, dir
}

func TestHistoryStorage_AppendOnly(t *testing.T) {
	manager, dir := newTestManager(t)
	ctx := context.Background()
	history := manager.HistoryStorage()

	records, err := history.ReadAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, history.Append(ctx, models.HistoryRecord{Score: 0.25, Timestamp: base}))
	require.NoError(t, history.Append(ctx, models.HistoryRecord{Score: -0.5, Timestamp: base.Add(time.Minute)}))

	records, err = history.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0.25, records[0].Score)
	assert.Equal(t, -0.5, records[1].Score)

	latest, err := history.ReadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, -0.5, latest.Score)

	data, err := os.ReadFile(filepath.Join(dir, "score-history.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"score": 0.25`)
	assert.Contains(t, string(data), `"timestamp": "2025-03-01T12:00:00Z"`)
}

func TestHistoryStorage_CorruptFileIsNotOverwritten(t *testing.T) {
	manager, dir := newTestManager(t)
	ctx := context.Background()
	path := filepath.Join(dir, "score-history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	err := manager.HistoryStorage().Append(ctx, models.HistoryRecord{Score: 1})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestResultAndReasoning_NotFoundThenOverwrite(t *testing.T) {
	manager, dir := newTestManager(t)
	ctx := context.Background()

	_, err := manager.ResultStorage().GetLatest(ctx)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	_, err = manager.ReasoningStorage().Get(ctx)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, manager.ResultStorage().SaveLatest(ctx, &models.AggregateResult{AverageScore: 0.1, TotalPostCount: 3}))
	require.NoError(t, manager.ResultStorage().SaveLatest(ctx, &models.AggregateResult{AverageScore: 0.9, TotalPostCount: 7}))
	result, err := manager.ResultStorage().GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.9, result.AverageScore)
	assert.Equal(t, 7, result.TotalPostCount)

	data, err := os.ReadFile(filepath.Join(dir, "sentiment-results.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"averageScore": 0.9`)

	require.NoError(t, manager.ReasoningStorage().Save(ctx, &models.ReasoningDocument{Text: "Score: 0.90"}))
	doc, err := manager.ReasoningStorage().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Score: 0.90", doc.Text)
	assert.False(t, doc.UpdatedAt.IsZero())

	leftovers, err := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSnapshotStorage_Layout(t *testing.T) {
	manager, dir := newTestManager(t)
	ctx := context.Background()
	snapshots := manager.SnapshotStorage()

	require.NoError(t, snapshots.SaveCatalog(ctx, &models.CatalogSnapshot{Board: "pol", Threads: []models.CatalogThread{{No: 9}}}))
	assert.FileExists(t, filepath.Join(dir, "pol-catalog.json"))

	for _, no := range []int64{30, 10, 20} {
		require.NoError(t, snapshots.SaveThread(ctx, &models.ThreadSnapshot{Board: "pol", ThreadNo: no}))
	}
	assert.FileExists(t, filepath.Join(dir, "pol-replies", "10.json"))

	threads, err := snapshots.ListThreads(ctx, "pol")
	require.NoError(t, err)
	require.Len(t, threads, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{threads[0].ThreadNo, threads[1].ThreadNo, threads[2].ThreadNo})

	require.NoError(t, snapshots.DeleteThreads(ctx, "pol"))
	threads, err = snapshots.ListThreads(ctx, "pol")
	require.NoError(t, err)
	assert.Empty(t, threads)

	require.NoError(t, snapshots.DeleteCatalog(ctx, "pol"))
	require.NoError(t, snapshots.DeleteCatalog(ctx, "pol"))
	_, err = snapshots.GetCatalog(ctx, "pol")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, snapshots.SaveProcessed(ctx, &models.ProcessedSnapshot{Board: "pol", Mode: "replies", Posts: []models.ProcessedPost{{Text: "a"}}}))
	assert.FileExists(t, filepath.Join(dir, "pol-replies-processed.json"))
	processed, err := snapshots.GetProcessed(ctx, "pol", "replies")
	require.NoError(t, err)
	assert.Equal(t, "pol/replies", processed.ID)
}
