package file

import (
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
)

// Manager implements the StorageManager interface on plain files in one directory
type Manager struct {
	history   *HistoryStorage
	result    *ResultStorage
	reasoning *ReasoningStorage
	snapshot  *SnapshotStorage
}

// NewManager creates the data directory and the file stores inside it
func NewManager(logger arbor.ILogger, config *common.FileConfig) (interfaces.StorageManager, error) {
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logger.Info().Str("dir", config.Dir).Msg("File storage manager initialized")

	return &Manager{
		history:   NewHistoryStorage(config.Dir, logger),
		result:    NewResultStorage(config.Dir),
		reasoning: NewReasoningStorage(config.Dir),
		snapshot:  NewSnapshotStorage(config.Dir),
	}, nil
}

func (m *Manager) HistoryStorage() interfaces.HistoryStorage     { return m.history }
func (m *Manager) ResultStorage() interfaces.ResultStorage       { return m.result }
func (m *Manager) ReasoningStorage() interfaces.ReasoningStorage { return m.reasoning }
func (m *Manager) SnapshotStorage() interfaces.SnapshotStorage   { return m.snapshot }

// Close is a no-op; every write is complete when it returns
func (m *Manager) Close() error { return nil }
