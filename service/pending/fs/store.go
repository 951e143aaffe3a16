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
	"github.com/mechapengu/postpilot/service/dao"
	"github.com/mechapengu/postpilot/service/pending"
)

// Store persists pending drafts as a single JSON document holding the full
// id to draft mapping. Every mutation rewrites the whole document via a
// temporary sibling followed by an atomic move, so a crashed write never
// corrupts the previously committed state.
type Store struct {
	location string
	fs       afs.Service
	mu       sync.Mutex
}

var _ pending.Store = (*Store)(nil)

// New creates a draft store backed by the JSON document at location.
func New(location string) *Store {
	return &Store{location: location, fs: afs.New()}
}

func (s *Store) Put(ctx context.Context, draft *model.Draft) error {
	if draft == nil {
		return dao.ErrNilEntity
	}
	if draft.ID == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load(ctx)
	if err != nil {
		return err
	}
	drafts[draft.ID] = draft.Clone()
	return s.flush(ctx, drafts)
}

func (s *Store) Get(ctx context.Context, id string) (*model.Draft, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return drafts[id].Clone(), nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := drafts[id]; !ok {
		return nil
	}
	delete(drafts, id)
	return s.flush(ctx, drafts)
}

func (s *Store) List(ctx context.Context) (map[string]*model.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// load reads the committed document; an absent file yields an empty map.
func (s *Store) load(ctx context.Context) (map[string]*model.Draft, error) {
	exists, err := s.fs.Exists(ctx, s.location)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending drafts %s: %v: %w", s.location, err, model.ErrStoreIO)
	}
	if !exists {
		return map[string]*model.Draft{}, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, s.location)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending drafts %s: %v: %w", s.location, err, model.ErrStoreIO)
	}
	drafts := map[string]*model.Draft{}
	if len(data) == 0 {
		return drafts, nil
	}
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("failed to decode pending drafts %s: %v: %w", s.location, err, model.ErrStoreIO)
	}
	return drafts, nil
}

// flush rewrites the full document, write-temp-then-replace.
func (s *Store) flush(ctx context.Context, drafts map[string]*model.Draft) error {
	data, err := json.MarshalIndent(drafts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode pending drafts: %v: %w", err, model.ErrStoreIO)
	}
	staging := s.location + ".tmp"
	if err := s.fs.Upload(ctx, staging, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to stage pending drafts %s: %v: %w", staging, err, model.ErrStoreIO)
	}
	if err := s.fs.Move(ctx, staging, s.location); err != nil {
		return fmt.Errorf("failed to commit pending drafts %s: %v: %w", s.location, err, model.ErrStoreIO)
	}
	return nil
}
