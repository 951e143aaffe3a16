package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/history"
)

// Store persists the publication history as a JSON array of strings,
// rewritten in full on every append with a write-temp-then-replace commit.
type Store struct {
	location string
	fs       afs.Service
	mu       sync.Mutex
}

var _ history.Store = (*Store)(nil)

// New creates a history store backed by the JSON document at location.
func New(location string) *Store {
	return &Store{location: location, fs: afs.New()}
}

func (s *Store) Append(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	texts, err := s.load(ctx)
	if err != nil {
		return err
	}
	texts = append(texts, text)

	data, err := json.Marshal(texts)
	if err != nil {
		return fmt.Errorf("failed to encode history: %v: %w", err, model.ErrStoreIO)
	}
	staging := s.location + ".tmp"
	if err := s.fs.Upload(ctx, staging, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to stage history %s: %v: %w", staging, err, model.ErrStoreIO)
	}
	if err := s.fs.Move(ctx, staging, s.location); err != nil {
		return fmt.Errorf("failed to commit history %s: %v: %w", s.location, err, model.ErrStoreIO)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, n int) ([]string, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return history.Tail(all, n), nil
}

func (s *Store) All(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) ([]string, error) {
	exists, err := s.fs.Exists(ctx, s.location)
	if err != nil {
		return nil, fmt.Errorf("failed to check history %s: %v: %w", s.location, err, model.ErrStoreIO)
	}
	if !exists {
		return []string{}, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, s.location)
	if err != nil {
		return nil, fmt.Errorf("failed to read history %s: %v: %w", s.location, err, model.ErrStoreIO)
	}
	var texts []string
	if len(data) == 0 {
		return []string{}, nil
	}
	if err := json.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("failed to decode history %s: %v: %w", s.location, err, model.ErrStoreIO)
	}
	return texts, nil
}
