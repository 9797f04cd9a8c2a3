// Package dedup holds the durable sets that keep repeated crawl runs idempotent.
package dedup

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"interview-harvester/internal/store"
)

// PersistenceError reports a failed snapshot read or write.
// The in-memory set stays authoritative when one occurs.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s visited snapshot %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// VisitedSet is the append-only set of URLs already processed.
// The crawl loop mutates it; the flusher reads copies concurrently.
type VisitedSet struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	urls  map[string]struct{}
	order []string
}

// NewVisitedSet returns an empty set persisted at path.
func NewVisitedSet(path string, logger *zap.Logger) *VisitedSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisitedSet{
		path:   path,
		logger: logger.With(zap.String("component", "visited_set")),
		urls:   make(map[string]struct{}),
	}
}

// Has reports whether url was visited.
func (s *VisitedSet) Has(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.urls[url]
	return ok
}

// MarkVisited records url and reports whether it was new.
func (s *VisitedSet) MarkVisited(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

// Len returns the number of visited URLs.
func (s *VisitedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns a copy of the set in insertion order.
func (s *VisitedSet) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Restore merges the snapshot file into the set and returns how many URLs were loaded.
// A missing file is an empty snapshot. A corrupt one is logged and reported
// as a PersistenceError, leaving the set as it was.
func (s *VisitedSet) Restore() (int, error) {
	var urls []string
	if err := store.ReadJSON(s.path, &urls); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("no visited snapshot found, starting empty", zap.String("path", s.path))
			return 0, nil
		}
		perr := &PersistenceError{Op: "load", Path: s.path, Err: err}
		s.logger.Warn("visited snapshot unreadable, starting empty", zap.Error(perr))
		return 0, perr
	}

	loaded := 0
	for _, u := range urls {
		if s.MarkVisited(u) {
			loaded++
		}
	}
	s.logger.Info("loaded previously visited URLs", zap.Int("count", loaded), zap.String("path", s.path))
	return loaded, nil
}

// Flush writes the current snapshot to disk.
func (s *VisitedSet) Flush() error {
	urls := s.Snapshot()
	if err := store.WriteJSON(s.path, urls); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	s.logger.Info("saved visited URLs", zap.Int("count", len(urls)), zap.String("path", s.path))
	return nil
}
