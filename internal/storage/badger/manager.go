package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	history   *HistoryStorage
	result    interfaces.ResultStorage
	reasoning interfaces.ReasoningStorage
	snapshot  interfaces.SnapshotStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}
	return newManager(db, logger)
}

func newManager(db *BadgerDB, logger arbor.ILogger) (*Manager, error) {
	history, err := NewHistoryStorage(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	manager := &Manager{
		db:        db,
		history:   history,
		result:    NewResultStorage(db, logger),
		reasoning: NewReasoningStorage(db, logger),
		snapshot:  NewSnapshotStorage(db, logger),
		logger:    logger,
	}

	logger.Info().Str("path", db.Path()).Msg("Badger storage manager initialized")

	return manager, nil
}

// HistoryStorage returns the score history store
func (m *Manager) HistoryStorage() interfaces.HistoryStorage {
	return m.history
}

// ResultStorage returns the latest-result store
func (m *Manager) ResultStorage() interfaces.ResultStorage {
	return m.result
}

// ReasoningStorage returns the reasoning document store
func (m *Manager) ReasoningStorage() interfaces.ReasoningStorage {
	return m.reasoning
}

// SnapshotStorage returns the corpus snapshot store
func (m *Manager) SnapshotStorage() interfaces.SnapshotStorage {
	return m.snapshot
}

// Close releases the history sequence and closes the database
func (m *Manager) Close() error {
	if m.history != nil {
		if err := m.history.Close(); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to release history sequence")
		}
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
