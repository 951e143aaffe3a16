package memory

import (
	"context"
	"sync"

	"github.com/mechapengu/postpilot/service/history"
)

// Store keeps the publication history in memory, for tests and the demo.
type Store struct {
	mu    sync.RWMutex
	texts []string
}

var _ history.Store = (*Store)(nil)

func New(seed ...string) *Store {
	return &Store{texts: append([]string(nil), seed...)}
}

func (s *Store) Append(_ context.Context, text string) error {
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *Store) Recent(_ context.Context, n int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), history.Tail(s.texts, n)...), nil
}

func (s *Store) All(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.texts...), nil
}
