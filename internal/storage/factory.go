// Package storage selects the persistence backend for the pipeline
package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/storage/badger"
	"github.com/ternarybob/portent/internal/storage/file"
)

// NewStorageManager creates the storage manager named by storage.type
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	switch config.Storage.Type {
	case "", "badger":
		return badger.NewManager(logger, &config.Storage.Badger)
	case "file":
		return file.NewManager(logger, &config.Storage.File)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Storage.Type)
	}
}
