package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"interview-harvester/internal/dedup"
	"interview-harvester/internal/models"
	"interview-harvester/internal/store"
)

// DefaultOutputPath is where the file strategy keeps its collection.
const DefaultOutputPath = "scraped_data/interview_questions.json"

// FileSink appends new questions to a JSON array on disk, skipping any
// whose text already exists there (case-insensitive).
type FileSink struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileSink creates the output directory and an empty collection when the file is absent.
func NewFileSink(path string, logger *zap.Logger) (*FileSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = DefaultOutputPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := store.WriteJSON(path, []models.QuestionRecord{}); err != nil {
			return nil, fmt.Errorf("initialise %s: %w", path, err)
		}
	}
	return &FileSink{
		path:   path,
		logger: logger.With(zap.String("component", "file_sink"), zap.String("path", path)),
	}, nil
}

func (s *FileSink) Dispatch(_ context.Context, page models.ExtractedPage) (int, error) {
	return s.SaveQuestions(page.Questions)
}

// SaveQuestions appends the records not already stored and returns how many
// were added. An unreadable collection is treated as empty.
func (s *FileSink) SaveQuestions(records []models.QuestionRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.load()
	index := dedup.NewQuestionIndex(existing)
	added := 0
	for _, r := range records {
		if r.Question == "" || !index.Add(r.Question) {
			continue
		}
		existing = append(existing, r)
		added++
	}
	if added == 0 {
		s.logger.Debug("no new questions to save", zap.Int("received", len(records)))
		return 0, nil
	}

	if err := store.WriteJSON(s.path, existing); err != nil {
		s.logger.Error("saving questions failed", zap.Error(err))
		return 0, &DispatchError{Strategy: StrategyFile, Target: s.path, Err: err}
	}
	s.logger.Info("saved new questions", zap.Int("added", added), zap.Int("total", len(existing)))
	return added, nil
}

func (s *FileSink) load() []models.QuestionRecord {
	var records []models.QuestionRecord
	if err := store.ReadJSON(s.path, &records); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("existing questions unreadable, starting empty", zap.Error(err))
		}
		return nil
	}
	return records
}

func (s *FileSink) Close() error { return nil }
