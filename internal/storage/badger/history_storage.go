package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// historySequenceKey names the badger sequence that orders history entries
var historySequenceKey = []byte("portent/history/seq")

// historyEntry is the stored form of a HistoryRecord. Seq is both the
// badgerhold key and the sort field, so append order survives restarts.
type historyEntry struct {
	Seq       uint64
	Score     float64
	Timestamp time.Time
}

// HistoryStorage implements the append-only score history on Badger
type HistoryStorage struct {
	db     *BadgerDB
	seq    *badgerdb.Sequence
	mu     sync.Mutex
	logger arbor.ILogger
}

// NewHistoryStorage creates a HistoryStorage and leases its sequence
func NewHistoryStorage(db *BadgerDB, logger arbor.ILogger) (*HistoryStorage, error) {
	seq, err := db.Store().Badger().GetSequence(historySequenceKey, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to lease history sequence: %w", err)
	}

	return &HistoryStorage{
		db:     db,
		seq:    seq,
		logger: logger,
	}, nil
}

// Append stores a record after every record appended before it
func (s *HistoryStorage) Append(ctx context.Context, record models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate history sequence: %w", err)
	}

	entry := historyEntry{
		Seq:       next,
		Score:     record.Score,
		Timestamp: record.Timestamp,
	}
	if err := s.db.Store().Insert(next, &entry); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}

	s.logger.Debug().Int64("seq", int64(next)).Float64("score", record.Score).Msg("History record appended")
	return nil
}

// ReadAll returns every record in append order
func (s *HistoryStorage) ReadAll(ctx context.Context) ([]models.HistoryRecord, error) {
	var entries []historyEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("Seq").Ge(uint64(0)).SortBy("Seq")); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	records := make([]models.HistoryRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, models.HistoryRecord{Score: entry.Score, Timestamp: entry.Timestamp})
	}
	return records, nil
}

// ReadLatest returns the most recently appended record
func (s *HistoryStorage) ReadLatest(ctx context.Context) (*models.HistoryRecord, error) {
	var entries []historyEntry
	query := badgerhold.Where("Seq").Ge(uint64(0)).SortBy("Seq").Reverse().Limit(1)
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to read latest history record: %w", err)
	}
	if len(entries) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &models.HistoryRecord{Score: entries[0].Score, Timestamp: entries[0].Timestamp}, nil
}

// Close returns unused sequence numbers to Badger
func (s *HistoryStorage) Close() error {
	if s.seq != nil {
		return s.seq.Release()
	}
	return nil
}
