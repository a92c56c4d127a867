package interfaces

import (
	"context"

	"github.com/ternarybob/portent/internal/models"
)

// HistoryStorage is the append-only score history.
// Append is the only mutation; readers never observe a partial record.
type HistoryStorage interface {
	Append(ctx context.Context, record models.HistoryRecord) error
	// ReadAll returns every record in append order, or an empty slice
	ReadAll(ctx context.Context) ([]models.HistoryRecord, error)
	// ReadLatest returns the last appended record or ErrNotFound
	ReadLatest(ctx context.Context) (*models.HistoryRecord, error)
}

// ResultStorage is the single "latest result" slot
type ResultStorage interface {
	SaveLatest(ctx context.Context, result *models.AggregateResult) error
	GetLatest(ctx context.Context) (*models.AggregateResult, error)
}

// ReasoningStorage is the single reasoning document slot
type ReasoningStorage interface {
	Save(ctx context.Context, doc *models.ReasoningDocument) error
	Get(ctx context.Context) (*models.ReasoningDocument, error)
}

// SnapshotStorage holds the raw and processed corpus snapshots, overwritten each pass
type SnapshotStorage interface {
	SaveCatalog(ctx context.Context, snapshot *models.CatalogSnapshot) error
	GetCatalog(ctx context.Context, board string) (*models.CatalogSnapshot, error)
	DeleteCatalog(ctx context.Context, board string) error

	SaveThread(ctx context.Context, snapshot *models.ThreadSnapshot) error
	// ListThreads returns the board's threads ordered by thread number
	ListThreads(ctx context.Context, board string) ([]*models.ThreadSnapshot, error)
	DeleteThreads(ctx context.Context, board string) error

	SaveProcessed(ctx context.Context, snapshot *models.ProcessedSnapshot) error
	GetProcessed(ctx context.Context, board, mode string) (*models.ProcessedSnapshot, error)
}

// StorageManager aggregates the stores of one backend
type StorageManager interface {
	HistoryStorage() HistoryStorage
	ResultStorage() ResultStorage
	ReasoningStorage() ReasoningStorage
	SnapshotStorage() SnapshotStorage
	Close() error
}
