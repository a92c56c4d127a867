package interfaces

import (
	"context"

	"github.com/ternarybob/portent/internal/models"
)

// PassRunner executes one full pipeline pass
type PassRunner interface {
	Run(ctx context.Context) (*models.AggregateResult, error)
}

// SchedulerService drives passes forever, one at a time
type SchedulerService interface {
	Start() error
	Stop() error
	// TriggerNow wakes the loop early; returns ErrPassInProgress while Running
	TriggerNow() error
	Status() models.SchedulerStatus
}
