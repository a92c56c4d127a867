package handlers

import (
	"context"

	"github.com/ternarybob/portent/internal/models"
)

// ChartReader serves the chart projection and raw history.
type ChartReader interface {
	ChartData(ctx context.Context) (models.ChartData, error)
	History(ctx context.Context, limit int) ([]models.HistoryRecord, error)
}
