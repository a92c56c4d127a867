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

const (
	latestResultKey = "latest"
	reasoningKey    = "current"
)

// ResultStorage implements the latest-result slot on Badger
type ResultStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewResultStorage creates a new ResultStorage instance
func NewResultStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ResultStorage {
	return &ResultStorage{
		db:     db,
		logger: logger,
	}
}

// SaveLatest overwrites the latest result
func (s *ResultStorage) SaveLatest(ctx context.Context, result *models.AggregateResult) error {
	if err := s.db.Store().Upsert(latestResultKey, result); err != nil {
		return fmt.Errorf("failed to save latest result: %w", err)
	}
	return nil
}

// GetLatest returns the latest result or ErrNotFound
func (s *ResultStorage) GetLatest(ctx context.Context) (*models.AggregateResult, error) {
	var result models.AggregateResult
	err := s.db.Store().Get(latestResultKey, &result)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest result: %w", err)
	}
	return &result, nil
}

// ReasoningStorage implements the reasoning document slot on Badger
type ReasoningStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReasoningStorage creates a new ReasoningStorage instance
func NewReasoningStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReasoningStorage {
	return &ReasoningStorage{
		db:     db,
		logger: logger,
	}
}

// Save overwrites the reasoning document
func (s *ReasoningStorage) Save(ctx context.Context, doc *models.ReasoningDocument) error {
	if err := s.db.Store().Upsert(reasoningKey, doc); err != nil {
		return fmt.Errorf("failed to save reasoning document: %w", err)
	}
	return nil
}

// Get returns the reasoning document or ErrNotFound
func (s *ReasoningStorage) Get(ctx context.Context) (*models.ReasoningDocument, error) {
	var doc models.ReasoningDocument
	err := s.db.Store().Get(reasoningKey, &doc)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reasoning document: %w", err)
	}
	return &doc, nil
}
