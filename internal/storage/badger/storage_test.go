package badger

import (
	"context"
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

func openTestManager(t *testing.T, path string) *Manager {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: path})
	require.NoError(t, err)
	manager, err := newManager(db, logger)
	require.NoError(t, err)
	return manager
}

func TestHistoryStorage_AppendOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	manager := openTestManager(t, path)
	ctx := context.Background()
	history := manager.HistoryStorage()

	records, err := history.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = history.ReadLatest(ctx)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	scores := []float64{0.5, -0.2, 0.7}
	for i, score := range scores {
		require.NoError(t, history.Append(ctx, models.HistoryRecord{
			Score:     score,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err = history.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, score := range scores {
		assert.Equal(t, score, records[i].Score)
		assert.True(t, records[i].Timestamp.Equal(base.Add(time.Duration(i)*time.Minute)))
	}

	latest, err := history.ReadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.7, latest.Score)

	// Order survives a reopen
	require.NoError(t, manager.Close())
	manager = openTestManager(t, path)
	defer manager.Close()

	require.NoError(t, manager.HistoryStorage().Append(ctx, models.HistoryRecord{Score: 0.1, Timestamp: base.Add(time.Hour)}))
	records, err = manager.HistoryStorage().ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, 0.1, records[3].Score)
}

func TestResultAndReasoningStorage_Overwrite(t *testing.T) {
	manager := openTestManager(t, filepath.Join(t.TempDir(), "db"))
	defer manager.Close()
	ctx := context.Background()

	_, err := manager.ResultStorage().GetLatest(ctx)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	_, err = manager.ReasoningStorage().Get(ctx)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, manager.ResultStorage().SaveLatest(ctx, &models.AggregateResult{RunID: "a", AverageScore: 0.4, TotalPostCount: 10}))
	require.NoError(t, manager.ResultStorage().SaveLatest(ctx, &models.AggregateResult{RunID: "b", AverageScore: -0.3, TotalPostCount: 12}))

	latest, err := manager.ResultStorage().GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.RunID)
	assert.Equal(t, -0.3, latest.AverageScore)
	assert.Equal(t, 12, latest.TotalPostCount)

	require.NoError(t, manager.ReasoningStorage().Save(ctx, &models.ReasoningDocument{RunID: "a", Text: "first"}))
	require.NoError(t, manager.ReasoningStorage().Save(ctx, &models.ReasoningDocument{RunID: "b", Text: "second"}))

	doc, err := manager.ReasoningStorage().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", doc.Text)
}

func TestSnapshotStorage_Threads(t *testing.T) {
	manager := openTestManager(t, filepath.Join(t.TempDir(), "db"))
	defer manager.Close()
	ctx := context.Background()
	snapshots := manager.SnapshotStorage()

	for _, no := range []int64{300, 100, 200} {
		require.NoError(t, snapshots.SaveThread(ctx, &models.ThreadSnapshot{
			Board:    "x",
			ThreadNo: no,
			Posts:    []models.ThreadPost{{No: no, Com: "op"}},
		}))
	}
	require.NoError(t, snapshots.SaveThread(ctx, &models.ThreadSnapshot{Board: "pol", ThreadNo: 50}))

	threads, err := snapshots.ListThreads(ctx, "x")
	require.NoError(t, err)
	require.Len(t, threads, 3)
	assert.Equal(t, int64(100), threads[0].ThreadNo)
	assert.Equal(t, int64(300), threads[2].ThreadNo)
	assert.Equal(t, "x/100", threads[0].ID)

	require.NoError(t, snapshots.DeleteThreads(ctx, "x"))
	threads, err = snapshots.ListThreads(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, threads)

	threads, err = snapshots.ListThreads(ctx, "pol")
	require.NoError(t, err)
	assert.Len(t, threads, 1)
}

func TestSnapshotStorage_CatalogAndProcessed(t *testing.T) {
	manager := openTestManager(t, filepath.Join(t.TempDir(), "db"))
	defer manager.Close()
	ctx := context.Background()
	snapshots := manager.SnapshotStorage()

	require.NoError(t, snapshots.DeleteCatalog(ctx, "x"))

	require.NoError(t, snapshots.SaveCatalog(ctx, &models.CatalogSnapshot{
		Board:   "x",
		Threads: []models.CatalogThread{{No: 1, Com: "hello"}},
	}))
	catalog, err := snapshots.GetCatalog(ctx, "x")
	require.NoError(t, err)
	require.Len(t, catalog.Threads, 1)

	require.NoError(t, snapshots.DeleteCatalog(ctx, "x"))
	_, err = snapshots.GetCatalog(ctx, "x")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, snapshots.SaveProcessed(ctx, &models.ProcessedSnapshot{
		Board: "x",
		Mode:  "all",
		Posts: []models.ProcessedPost{{Text: "one"}, {Text: "two"}},
	}))
	processed, err := snapshots.GetProcessed(ctx, "x", "all")
	require.NoError(t, err)
	assert.Len(t, processed.Posts, 2)

	_, err = snapshots.GetProcessed(ctx, "x", "catalog")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestBadgerDB_ResetOnStartupDiscardsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	ctx := context.Background()
	logger := arbor.NewLogger()

	manager := openTestManager(t, path)
	require.NoError(t, manager.HistoryStorage().Append(ctx, models.HistoryRecord{Score: 0.3, Timestamp: time.Now()}))
	require.NoError(t, manager.Close())

	reopened := openTestManager(t, path)
	records, err := reopened.HistoryStorage().ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	require.NoError(t, reopened.Close())

	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: path, ResetOnStartup: true})
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	reset, err := newManager(db, logger)
	require.NoError(t, err)
	defer reset.Close()

	records, err = reset.HistoryStorage().ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}
