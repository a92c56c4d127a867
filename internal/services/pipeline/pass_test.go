package pipeline

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
	"github.com/ternarybob/portent/internal/services/aggregator"
	"github.com/ternarybob/portent/internal/services/classifier"
	"github.com/ternarybob/portent/internal/services/collector"
	"github.com/ternarybob/portent/internal/services/corpus"
	"github.com/ternarybob/portent/internal/storage/file"
)

// markerlessBackend never returns a score marker
type markerlessBackend struct {
	calls int32
}

func (b *markerlessBackend) Name() string { return "markerless" }

func (b *markerlessBackend) DefaultPolicy() models.FallbackPolicy { return models.PolicyNeutral }

func (b *markerlessBackend) Score(ctx context.Context, request *interfaces.ScoringRequest) (string, error) {
	atomic.AddInt32(&b.calls, 1)
	return "no marker at all", nil
}

func (b *markerlessBackend) Close() error { return nil }

// newBoardServer fails the pol catalog and serves three threads for x
func newBoardServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pol/catalog.json":
			w.WriteHeader(http.StatusInternalServerError)
		case "/x/catalog.json":
			w.Write([]byte(`[{"page":1,"threads":[` +
				`{"no":101,"sub":"Lights","com":"Strange lights over the bay"},` +
				`{"no":102,"com":"Anyone else hearing the hum?"},` +
				`{"no":103,"com":"Cattle found in a field again"}]}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRun_FullPassWithFailingBoard(t *testing.T) {
	tests := []struct {
		name         string
		policy       models.FallbackPolicy
		contributing int
	}{
		{name: "neutral", policy: models.PolicyNeutral, contributing: 3},
		{name: "omit", policy: models.PolicyOmit, contributing: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newBoardServer(t)
			logger := arbor.NewLogger()
			ctx := context.Background()
			boards := []string{"pol", "x"}

			stores, err := file.NewManager(logger, &common.FileConfig{Dir: t.TempDir()})
			require.NoError(t, err)
			defer stores.Close()

			client := imageboard.NewClient(
				imageboard.WithBaseURL(server.URL),
				imageboard.WithLogger(logger),
				imageboard.WithCatalogDelay(0),
				imageboard.WithThreadDelay(0),
				imageboard.WithRetry(1, time.Millisecond, 2*time.Millisecond),
			)
			backend := &markerlessBackend{}
			recorder := aggregator.NewService(stores.HistoryStorage(), stores.ReasoningStorage(), classifier.DefaultPrompts().IntroFor, logger)

			runner := NewRunner(
				collector.NewService(client, stores.SnapshotStorage(), boards, 20, logger),
				corpus.NewService(stores.SnapshotStorage(), boards, 1, logger),
				classifier.NewService(backend, recorder, nil, classifier.Options{Chunks: 3, Policy: tt.policy}, logger),
				stores.ResultStorage(),
				models.ModeCatalog,
				logger,
			)

			result, err := runner.Run(ctx)
			require.NoError(t, err)

			assert.Equal(t, 0.0, result.AverageScore)
			assert.Equal(t, 3, result.TotalPostCount)
			assert.Equal(t, 3, result.ChunkCount)
			assert.Equal(t, tt.contributing, result.ContributingChunks)
			assert.Equal(t, int32(3), atomic.LoadInt32(&backend.calls))

			_, err = stores.SnapshotStorage().GetCatalog(ctx, "pol")
			assert.ErrorIs(t, err, interfaces.ErrNotFound)

			records, err := stores.HistoryStorage().ReadAll(ctx)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, 0.0, records[0].Score)

			latest, err := stores.ResultStorage().GetLatest(ctx)
			require.NoError(t, err)
			assert.Equal(t, result.RunID, latest.RunID)
			assert.Equal(t, 3, latest.TotalPostCount)

			doc, err := stores.ReasoningStorage().Get(ctx)
			require.NoError(t, err)
			assert.Contains(t, doc.Text, "Score: 0.00")
		})
	}
}
