package memory

import (
	"context"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/dao"
	"github.com/mechapengu/postpilot/service/dao/store"
	"github.com/mechapengu/postpilot/service/pending"
)

// Store keeps pending drafts in memory. Used by tests and the demo; the
// production deployment uses the fs variant.
type Store struct {
	records *store.MemoryStore[string, model.Draft]
}

func draftKey(d *model.Draft) string { return d.ID }

func New() *Store {
	return &Store{records: store.NewMemoryStore[string, model.Draft](draftKey)}
}

func (s *Store) Put(ctx context.Context, draft *model.Draft) error {
	if draft == nil {
		return dao.ErrNilEntity
	}
	if draft.ID == "" {
		return dao.ErrInvalidID
	}
	return s.records.Save(ctx, draft.Clone())
}

func (s *Store) Get(ctx context.Context, id string) (*model.Draft, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	draft, err := s.records.Load(ctx, id)
	if err != nil || draft == nil {
		return nil, err
	}
	return draft.Clone(), nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.records.Delete(ctx, id)
}

func (s *Store) List(ctx context.Context) (map[string]*model.Draft, error) {
	all, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*model.Draft, len(all))
	for _, draft := range all {
		out[draft.ID] = draft.Clone()
	}
	return out, nil
}

var _ pending.Store = (*Store)(nil)
