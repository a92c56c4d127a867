// Package corpus reduces stored snapshots to the flat list of plain-text posts the classifier scores
package corpus

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
	"github.com/ternarybob/portent/internal/services/sanitizer"
)

// Service is the corpus builder
type Service struct {
	snapshots      interfaces.SnapshotStorage
	boards         []string
	quoteThreshold int
	logger         arbor.ILogger
}

// NewService creates a corpus builder over the given boards, in order
func NewService(snapshots interfaces.SnapshotStorage, boards []string, quoteThreshold int, logger arbor.ILogger) *Service {
	if quoteThreshold < 1 {
		quoteThreshold = 1
	}
	return &Service{
		snapshots:      snapshots,
		boards:         boards,
		quoteThreshold: quoteThreshold,
		logger:         logger,
	}
}

// Build returns the sanitized posts of every board for mode, boards in configured order.
// A board without a snapshot contributes zero posts.
func (s *Service) Build(ctx context.Context, mode models.ClassificationMode) ([]string, error) {
	var corpus []string
	for _, board := range s.boards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			posts []string
			err   error
		)
		if mode.UsesThreads() {
			posts, err = s.threadPosts(ctx, board)
		} else {
			posts, err = s.catalogPosts(ctx, board)
		}
		if err != nil {
			s.logger.Warn().
				Err(&interfaces.CorpusUnavailableError{Board: board, Err: err}).
				Str("mode", string(mode)).
				Msg("Board contributes no posts")
			continue
		}

		s.saveProcessed(ctx, board, mode, posts)
		corpus = append(corpus, posts...)

		s.logger.Debug().Str("board", board).Str("mode", string(mode)).Int("posts", len(posts)).Msg("Board corpus built")
	}

	s.logger.Info().Str("mode", string(mode)).Int("posts", len(corpus)).Msg("Corpus built")
	return corpus, nil
}

func (s *Service) catalogPosts(ctx context.Context, board string) ([]string, error) {
	catalog, err := s.snapshots.GetCatalog(ctx, board)
	if err != nil {
		return nil, err
	}

	posts := make([]string, 0, len(catalog.Threads))
	for _, thread := range catalog.Threads {
		if text := sanitizer.PostText(thread.Sub, thread.Com); text != "" {
			posts = append(posts, text)
		}
	}
	return posts, nil
}

func (s *Service) threadPosts(ctx context.Context, board string) ([]string, error) {
	threads, err := s.snapshots.ListThreads(ctx, board)
	if err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		return nil, interfaces.ErrNotFound
	}

	var posts []string
	for _, thread := range threads {
		for _, post := range ImportantPosts(thread.ThreadNo, thread.Posts, s.quoteThreshold) {
			if text := sanitizer.PostText(post.Sub, post.Com); text != "" {
				posts = append(posts, text)
			}
		}
	}
	return posts, nil
}

// saveProcessed writes the board's processed snapshot. Failure is logged only.
func (s *Service) saveProcessed(ctx context.Context, board string, mode models.ClassificationMode, posts []string) {
	processed := make([]models.ProcessedPost, len(posts))
	for i, text := range posts {
		processed[i] = models.ProcessedPost{Text: text}
	}

	snapshot := &models.ProcessedSnapshot{
		Board:       board,
		Mode:        processedMode(mode),
		Posts:       processed,
		ProcessedAt: time.Now(),
	}
	if err := s.snapshots.SaveProcessed(ctx, snapshot); err != nil {
		s.logger.Warn().Err(err).Str("board", board).Msg("Failed to save processed snapshot")
	}
}

// processedMode maps all and replies onto the same "replies" snapshot
func processedMode(mode models.ClassificationMode) string {
	if mode.UsesThreads() {
		return string(models.ModeReplies)
	}
	return string(models.ModeCatalog)
}
