package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

const (
	historyFile   = "score-history.json"
	resultFile    = "sentiment-results.json"
	reasoningFile = "reasoning.txt"
)

// HistoryStorage keeps the score history as a JSON array in score-history.json
type HistoryStorage struct {
	path   string
	mu     sync.Mutex
	logger arbor.ILogger
}

func NewHistoryStorage(dir string, logger arbor.ILogger) *HistoryStorage {
	return &HistoryStorage{path: filepath.Join(dir, historyFile), logger: logger}
}

// Append rewrites the whole array with the new record at the end.
// A history file that cannot be parsed is never overwritten.
func (s *HistoryStorage) Append(ctx context.Context, record models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	records = append(records, record)
	if err := writeJSONAtomic(s.path, records); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}

	s.logger.Debug().Int("records", len(records)).Float64("score", record.Score).Msg("History record appended")
	return nil
}

func (s *HistoryStorage) ReadAll(ctx context.Context) ([]models.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *HistoryStorage) ReadLatest(ctx context.Context) (*models.HistoryRecord, error) {
	records, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, interfaces.ErrNotFound
	}
	latest := records[len(records)-1]
	return &latest, nil
}

func (s *HistoryStorage) read() ([]models.HistoryRecord, error) {
	records := []models.HistoryRecord{}
	if err := readJSON(s.path, &records); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.HistoryRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return records, nil
}

// ResultStorage keeps the latest result in sentiment-results.json
type ResultStorage struct {
	path string
}

func NewResultStorage(dir string) *ResultStorage {
	return &ResultStorage{path: filepath.Join(dir, resultFile)}
}

func (s *ResultStorage) SaveLatest(ctx context.Context, result *models.AggregateResult) error {
	if err := writeJSONAtomic(s.path, result); err != nil {
		return fmt.Errorf("failed to save latest result: %w", err)
	}
	return nil
}

func (s *ResultStorage) GetLatest(ctx context.Context) (*models.AggregateResult, error) {
	var result models.AggregateResult
	if err := readJSON(s.path, &result); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest result: %w", err)
	}
	return &result, nil
}

// ReasoningStorage keeps the reasoning document as plain text in reasoning.txt
type ReasoningStorage struct {
	path string
}

func NewReasoningStorage(dir string) *ReasoningStorage {
	return &ReasoningStorage{path: filepath.Join(dir, reasoningFile)}
}

func (s *ReasoningStorage) Save(ctx context.Context, doc *models.ReasoningDocument) error {
	if err := writeFileAtomic(s.path, []byte(doc.Text)); err != nil {
		return fmt.Errorf("failed to save reasoning document: %w", err)
	}
	return nil
}

// Get returns the stored text; UpdatedAt is the file modification time
func (s *ReasoningStorage) Get(ctx context.Context) (*models.ReasoningDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read reasoning document: %w", err)
	}
	doc := &models.ReasoningDocument{Text: string(data)}
	if info, err := os.Stat(s.path); err == nil {
		doc.UpdatedAt = info.ModTime()
	}
	return doc, nil
}

// SnapshotStorage lays snapshots out as
//
//	{board}-catalog.json
//	{board}-replies/{no}.json
//	{board}-{mode}-processed.json
type SnapshotStorage struct {
	dir string
}

func NewSnapshotStorage(dir string) *SnapshotStorage {
	return &SnapshotStorage{dir: dir}
}

func (s *SnapshotStorage) catalogPath(board string) string {
	return filepath.Join(s.dir, board+"-catalog.json")
}

func (s *SnapshotStorage) threadDir(board string) string {
	return filepath.Join(s.dir, board+"-replies")
}

func (s *SnapshotStorage) processedPath(board, mode string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s-processed.json", board, mode))
}

func (s *SnapshotStorage) SaveCatalog(ctx context.Context, snapshot *models.CatalogSnapshot) error {
	if err := writeJSONAtomic(s.catalogPath(snapshot.Board), snapshot); err != nil {
		return fmt.Errorf("failed to save catalog snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) GetCatalog(ctx context.Context, board string) (*models.CatalogSnapshot, error) {
	var snapshot models.CatalogSnapshot
	if err := readJSON(s.catalogPath(board), &snapshot); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get catalog snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *SnapshotStorage) DeleteCatalog(ctx context.Context, board string) error {
	if err := os.Remove(s.catalogPath(board)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete catalog snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) SaveThread(ctx context.Context, snapshot *models.ThreadSnapshot) error {
	snapshot.ID = fmt.Sprintf("%s/%d", snapshot.Board, snapshot.ThreadNo)
	path := filepath.Join(s.threadDir(snapshot.Board), strconv.FormatInt(snapshot.ThreadNo, 10)+".json")
	if err := writeJSONAtomic(path, snapshot); err != nil {
		return fmt.Errorf("failed to save thread snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) ListThreads(ctx context.Context, board string) ([]*models.ThreadSnapshot, error) {
	entries, err := os.ReadDir(s.threadDir(board))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*models.ThreadSnapshot{}, nil
		}
		return nil, fmt.Errorf("failed to list thread snapshots: %w", err)
	}

	snapshots := make([]*models.ThreadSnapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var snapshot models.ThreadSnapshot
		if err := readJSON(filepath.Join(s.threadDir(board), entry.Name()), &snapshot); err != nil {
			return nil, fmt.Errorf("failed to read thread snapshot %s: %w", entry.Name(), err)
		}
		snapshots = append(snapshots, &snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ThreadNo < snapshots[j].ThreadNo
	})
	return snapshots, nil
}

func (s *SnapshotStorage) DeleteThreads(ctx context.Context, board string) error {
	if err := os.RemoveAll(s.threadDir(board)); err != nil {
		return fmt.Errorf("failed to delete thread snapshots: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) SaveProcessed(ctx context.Context, snapshot *models.ProcessedSnapshot) error {
	snapshot.ID = snapshot.Board + "/" + snapshot.Mode
	if err := writeJSONAtomic(s.processedPath(snapshot.Board, snapshot.Mode), snapshot); err != nil {
		return fmt.Errorf("failed to save processed snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStorage) GetProcessed(ctx context.Context, board, mode string) (*models.ProcessedSnapshot, error) {
	var snapshot models.ProcessedSnapshot
	if err := readJSON(s.processedPath(board, mode), &snapshot); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get processed snapshot: %w", err)
	}
	return &snapshot, nil
}
