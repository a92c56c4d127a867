package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SnapshotStorage implements corpus snapshot storage on Badger
type SnapshotStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSnapshotStorage creates a new SnapshotStorage instance
func NewSnapshotStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SnapshotStorage {
	return &SnapshotStorage{
		db:     db,
		logger: logger,
	}
}

func threadKey(board string, threadNo int64) string {
	return fmt.Sprintf("%s/%d", board, threadNo)
}

func processedKey(board, mode string) string {
	return board + "/" + mode
}

func (s *SnapshotStorage) SaveCatalog(ctx context.Context, snapshot *models.CatalogSnapshot) error {
	if err := s.db.Store().Upsert(snapshot.Board, snapshot); err != nil {
		return fmt.Errorf("failed to save catalog snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) GetCatalog(ctx context.Context, board string) (*models.CatalogSnapshot, error) {
	var snapshot models.CatalogSnapshot
	err := s.db.Store().Get(board, &snapshot)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *SnapshotStorage) DeleteCatalog(ctx context.Context, board string) error {
	err := s.db.Store().Delete(board, &models.CatalogSnapshot{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete catalog snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) SaveThread(ctx context.Context, snapshot *models.ThreadSnapshot) error {
	snapshot.ID = threadKey(snapshot.Board, snapshot.ThreadNo)
	if err := s.db.Store().Upsert(snapshot.ID, snapshot); err != nil {
		return fmt.Errorf("failed to save thread snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) ListThreads(ctx context.Context, board string) ([]*models.ThreadSnapshot, error) {
	var snapshots []*models.ThreadSnapshot
	if err := s.db.Store().Find(&snapshots, badgerhold.Where("Board").Eq(board).SortBy("ThreadNo")); err != nil {
		return nil, fmt.Errorf("failed to list thread snapshots: %w", err)
	}
	return snapshots, nil
}

func (s *SnapshotStorage) DeleteThreads(ctx context.Context, board string) error {
	if err := s.db.Store().DeleteMatching(&models.ThreadSnapshot{}, badgerhold.Where("Board").Eq(board)); err != nil {
		return fmt.Errorf("failed to delete thread snapshots: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) SaveProcessed(ctx context.Context, snapshot *models.ProcessedSnapshot) error {
	snapshot.ID = processedKey(snapshot.Board, snapshot.Mode)
	if err := s.db.Store().Upsert(snapshot.ID, snapshot); err != nil {
		return fmt.Errorf("failed to save processed snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) GetProcessed(ctx context.Context, board, mode string) (*models.ProcessedSnapshot, error) {
	var snapshot models.ProcessedSnapshot
	err := s.db.Store().Get(processedKey(board, mode), &snapshot)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get processed snapshot: %w", err)
	}
	return &snapshot, nil
}
