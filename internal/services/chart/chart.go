// Package chart projects the score history into hourly chart series
package chart

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

// Service reads the history and projects it on demand
type Service struct {
	history  interfaces.HistoryStorage
	location *time.Location
}

// NewService creates a chart service bucketing hours in loc (time.Local when nil)
func NewService(history interfaces.HistoryStorage, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{history: history, location: loc}
}

// ChartData projects the full history
func (s *Service) ChartData(ctx context.Context) (models.ChartData, error) {
	records, err := s.history.ReadAll(ctx)
	if err != nil {
		return models.ChartData{}, fmt.Errorf("read history: %w", err)
	}
	return Project(records, s.location), nil
}

// History returns the last limit records in append order; limit <= 0 means all
func (s *Service) History(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	records, err := s.history.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// Project groups records by local calendar hour, averages each group,
// rounds to two decimals and returns one series sorted by bucket start.
func Project(records []models.HistoryRecord, loc *time.Location) models.ChartData {
	if loc == nil {
		loc = time.Local
	}

	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[int64]*bucket)

	for _, record := range records {
		t := record.Timestamp.In(loc)
		key := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc).UnixMilli()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.sum += record.Score
		b.count++
	}

	points := make([]models.ChartPoint, 0, len(buckets))
	for key, b := range buckets {
		points = append(points, models.ChartPoint{
			Timestamp: key,
			Score:     math.Round(b.sum/float64(b.count)*100) / 100,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})

	return models.ChartData{
		Series: []models.ChartSeries{{Name: models.ChartSeriesName, Data: points}},
	}
}
