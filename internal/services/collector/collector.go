// Package collector runs the fetch stage of a pass: board catalogs always,
// full threads when the classification mode needs them
package collector

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

// Fetcher reads the imageboard API
type Fetcher interface {
	FetchCatalog(ctx context.Context, board string) ([]models.CatalogThread, error)
	FetchThread(ctx context.Context, board string, threadNo int64) (*models.Thread, error)
}

// Report summarizes one fetch stage
type Report struct {
	Boards   int           `json:"boards"`
	Fetched  int           `json:"fetched"` // Catalogs or threads stored
	Failures int           `json:"failures"`
	Duration time.Duration `json:"duration"`
}

// Service is the source fetcher pass
type Service struct {
	fetcher     Fetcher
	snapshots   interfaces.SnapshotStorage
	boards      []string
	threadLimit int
	logger      arbor.ILogger
}

// NewService creates a collector for the given boards, fetched in order
func NewService(fetcher Fetcher, snapshots interfaces.SnapshotStorage, boards []string, threadLimit int, logger arbor.ILogger) *Service {
	return &Service{
		fetcher:     fetcher,
		snapshots:   snapshots,
		boards:      boards,
		threadLimit: threadLimit,
		logger:      logger,
	}
}

// FetchCatalogs replaces every board's catalog snapshot. The previous snapshot
// is removed first, so a board that fails to fetch has no catalog this pass.
func (s *Service) FetchCatalogs(ctx context.Context) Report {
	start := time.Now()
	report := Report{Boards: len(s.boards)}

	for _, board := range s.boards {
		if ctx.Err() != nil {
			break
		}

		if err := s.snapshots.DeleteCatalog(ctx, board); err != nil {
			s.logger.Warn().Err(err).Str("board", board).Msg("Failed to clear previous catalog snapshot")
		}

		boardStart := time.Now()
		threads, err := s.fetcher.FetchCatalog(ctx, board)
		if err != nil {
			report.Failures++
			s.logger.Warn().Err(&interfaces.TransientFetchError{Board: board, Err: err}).Msg("Catalog fetch failed, skipping board")
			continue
		}

		snapshot := &models.CatalogSnapshot{
			Board:     board,
			Threads:   threads,
			FetchedAt: time.Now(),
		}
		if err := s.snapshots.SaveCatalog(ctx, snapshot); err != nil {
			report.Failures++
			s.logger.Warn().Err(err).Str("board", board).Msg("Failed to store catalog snapshot")
			continue
		}

		report.Fetched++
		s.logger.Info().
			Str("board", board).
			Int("threads", len(threads)).
			Dur("duration", time.Since(boardStart)).
			Msg("Catalog fetched")
	}

	report.Duration = time.Since(start)
	return report
}

// FetchThreads replaces every board's thread snapshots with the first
// threadLimit threads of its stored catalog
func (s *Service) FetchThreads(ctx context.Context) Report {
	start := time.Now()
	report := Report{Boards: len(s.boards)}

	for _, board := range s.boards {
		if ctx.Err() != nil {
			break
		}

		if err := s.snapshots.DeleteThreads(ctx, board); err != nil {
			s.logger.Warn().Err(err).Str("board", board).Msg("Failed to clear previous thread snapshots")
		}

		catalog, err := s.snapshots.GetCatalog(ctx, board)
		if err != nil {
			s.logger.Warn().Err(err).Str("board", board).Msg("No catalog for board, skipping thread fetch")
			continue
		}

		threads := catalog.Threads
		if s.threadLimit > 0 && len(threads) > s.threadLimit {
			threads = threads[:s.threadLimit]
		}

		boardStart := time.Now()
		stored := 0
		for _, thread := range threads {
			if ctx.Err() != nil {
				break
			}

			fetched, err := s.fetcher.FetchThread(ctx, board, thread.No)
			if err != nil {
				report.Failures++
				s.logger.Warn().
					Err(&interfaces.TransientFetchError{Board: board, ThreadNo: thread.No, Err: err}).
					Msg("Thread fetch failed, skipping thread")
				continue
			}

			snapshot := &models.ThreadSnapshot{
				Board:     board,
				ThreadNo:  thread.No,
				Posts:     fetched.Posts,
				FetchedAt: time.Now(),
			}
			if err := s.snapshots.SaveThread(ctx, snapshot); err != nil {
				report.Failures++
				s.logger.Warn().Err(err).Str("board", board).Int64("thread", thread.No).Msg("Failed to store thread snapshot")
				continue
			}
			stored++
		}

		report.Fetched += stored
		s.logger.Info().
			Str("board", board).
			Int("threads", stored).
			Dur("duration", time.Since(boardStart)).
			Msg("Threads fetched")
	}

	report.Duration = time.Since(start)
	return report
}
