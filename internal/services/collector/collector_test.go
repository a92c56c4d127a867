package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/imageboard"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
	"github.com/ternarybob/portent/internal/storage/file"
)

func newTestStore(t *testing.T) interfaces.SnapshotStorage {
	t.Helper()
	manager, err := file.NewManager(arbor.NewLogger(), &common.FileConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	return manager.SnapshotStorage()
}

func newTestFetcher(url string) *imageboard.Client {
	return imageboard.NewClient(
		imageboard.WithBaseURL(url),
		imageboard.WithCatalogDelay(0),
		imageboard.WithThreadDelay(0),
		imageboard.WithRetry(1, time.Millisecond, 2*time.Millisecond),
	)
}

func TestFetchCatalogs_OneBoardFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pol/catalog.json":
			w.WriteHeader(http.StatusInternalServerError)
		case "/x/catalog.json":
			w.Write([]byte(`[{"page":1,"threads":[{"no":11,"com":"first"},{"no":12,"com":"second"}]}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	store := newTestStore(t)
	// A stale pol snapshot from an earlier pass must not survive a failed fetch
	require.NoError(t, store.SaveCatalog(ctx, &models.CatalogSnapshot{Board: "pol", Threads: []models.CatalogThread{{No: 1}}}))

	svc := NewService(newTestFetcher(server.URL), store, []string{"pol", "x"}, 20, arbor.NewLogger())
	report := svc.FetchCatalogs(ctx)

	assert.Equal(t, 2, report.Boards)
	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 1, report.Failures)

	_, err := store.GetCatalog(ctx, "pol")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	catalog, err := store.GetCatalog(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, catalog.Threads, 2)
}

func TestFetchThreads_RespectsLimitAndSkipsFailures(t *testing.T) {
	var threadCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&threadCalls, 1)
		switch r.URL.Path {
		case "/x/thread/1.json":
			w.Write([]byte(`{"posts":[{"no":1,"com":"op one"},{"no":2,"resto":1,"com":"reply"}]}`))
		case "/x/thread/2.json":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Write([]byte(`{"posts":[{"no":3,"com":"op three"}]}`))
		}
	}))
	defer server.Close()

	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SaveCatalog(ctx, &models.CatalogSnapshot{
		Board:   "x",
		Threads: []models.CatalogThread{{No: 1}, {No: 2}, {No: 3}, {No: 4}},
	}))
	require.NoError(t, store.SaveThread(ctx, &models.ThreadSnapshot{Board: "x", ThreadNo: 99}))

	svc := NewService(newTestFetcher(server.URL), store, []string{"x", "pol"}, 3, arbor.NewLogger())
	report := svc.FetchThreads(ctx)

	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 1, report.Failures)
	assert.Equal(t, int32(3), atomic.LoadInt32(&threadCalls))

	threads, err := store.ListThreads(ctx, "x")
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, int64(1), threads[0].ThreadNo)
	assert.Len(t, threads[0].Posts, 2)
	assert.Equal(t, int64(3), threads[1].ThreadNo)
}
