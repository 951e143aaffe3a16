package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mechapengu/postpilot/internal/clock"
	"github.com/mechapengu/postpilot/internal/idgen"
	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/policy"
	"github.com/mechapengu/postpilot/service/approval"
	"github.com/mechapengu/postpilot/service/channel"
	"github.com/mechapengu/postpilot/service/messaging"
	qmem "github.com/mechapengu/postpilot/service/messaging/memory"
	"github.com/mechapengu/postpilot/service/pending"
)

// Service coordinates the review of one stream of drafts. Pending drafts live
// in the durable store; the decision hand-off to a waiting RequestApproval
// call happens over a per-draft buffered channel registered in waiters.
//
// The waiter channel doubles as the decision map: Decide deposits exactly one
// decision into it and the waiting side consumes it exactly once. A decision
// recorded when nobody waits (the waiter already gave up) is dropped, which
// keeps delivery at-most-once and memory bounded.
type service struct {
	store     pending.Store
	channel   channel.Channel
	events    messaging.Queue[approval.Event]
	newID     func() string
	now       func() time.Time
	onPresent func(*model.Draft) // test hook, invoked after a successful present

	mu      sync.Mutex
	waiters map[string]chan *model.Decision
}

// New creates an approval coordinator over the given pending store and review
// channel.
func New(store pending.Store, ch channel.Channel, options ...Option) (approval.Service, error) {
	if store == nil {
		return nil, errors.New("pending store is required")
	}
	if ch == nil {
		return nil, errors.New("review channel is required")
	}
	ret := &service{
		store:   store,
		channel: ch,
		events:  qmem.NewQueue[approval.Event](qmem.DefaultConfig()),
		newID:   idgen.New,
		now:     clock.Now,
		waiters: map[string]chan *model.Decision{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret, nil
}

func (s *service) RequestApproval(ctx context.Context, text, imagePath string, timeout time.Duration) (*model.Decision, error) {
	if !model.ValidText(text) {
		return nil, fmt.Errorf("draft text is empty or exceeds %d runes", model.MaxPostRunes)
	}
	if timeout <= 0 {
		timeout = policy.DefaultTimeout
	}
	draft := &model.Draft{
		ID:        s.newID(),
		Text:      text,
		ImagePath: imagePath,
		CreatedAt: s.now(),
	}

	// The waiter must exist before the draft becomes visible anywhere, so a
	// decision arriving right after Present cannot be lost.
	waiter := make(chan *model.Decision, 1)
	s.mu.Lock()
	s.waiters[draft.ID] = waiter
	s.mu.Unlock()

	if err := s.store.Put(ctx, draft); err != nil {
		s.unregister(draft.ID)
		return nil, err
	}
	if err := s.channel.Present(ctx, draft); err != nil {
		if decision := s.consumeOrAbandon(ctx, draft.ID, waiter); decision != nil {
			return decision, nil
		}
		return nil, fmt.Errorf("failed to present draft %v: %w", draft.ID, err)
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicRequestCreated, Data: draft})
	if s.onPresent != nil {
		s.onPresent(draft)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case decision := <-waiter:
		return decision, nil
	case <-timer.C:
		if decision := s.consumeOrAbandon(ctx, draft.ID, waiter); decision != nil {
			// The reviewer decided in the same instant the window closed;
			// the decision won the consuming read.
			return decision, nil
		}
		expired := &model.Decision{DraftID: draft.ID, Action: model.ActionTimeout, DecidedAt: s.now()}
		_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicRequestExpired, Data: draft})
		_ = s.channel.Notify(ctx, channel.NoticeTimeout)
		return expired, nil
	case <-ctx.Done():
		if decision := s.consumeOrAbandon(ctx, draft.ID, waiter); decision != nil {
			return decision, nil
		}
		return nil, ctx.Err()
	}
}

func (s *service) Decide(ctx context.Context, id string, action model.Action, finalText string) (*model.Decision, error) {
	if id == "" {
		return nil, approval.ErrAlreadyDecided
	}
	switch action {
	case model.ActionApprove, model.ActionDeny:
	default:
		return nil, fmt.Errorf("action %q cannot be recorded by a reviewer", action)
	}

	// Presence check, decision record and removal form one critical section
	// per draft id: the first caller through wins, everyone after observes
	// the draft gone and no-ops.
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, approval.ErrAlreadyDecided
	}

	decision := &model.Decision{DraftID: id, Action: action, DecidedAt: s.now()}
	if action == model.ActionApprove {
		if finalText == "" {
			finalText = draft.Text
		}
		if !model.ValidText(finalText) {
			return nil, fmt.Errorf("final text is empty or exceeds %d runes", model.MaxPostRunes)
		}
		decision.FinalText = finalText
	}

	if err := s.store.Remove(ctx, id); err != nil {
		return nil, err
	}
	if waiter, ok := s.waiters[id]; ok {
		waiter <- decision // capacity 1, only ever one send per draft
		delete(s.waiters, id)
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicDecisionCreated, Data: decision})
	return decision, nil
}

func (s *service) Lookup(ctx context.Context, id string) (*model.Draft, error) {
	if id == "" {
		return nil, nil
	}
	return s.store.Get(ctx, id)
}

func (s *service) Pending(ctx context.Context) ([]*model.Draft, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	drafts := make([]*model.Draft, 0, len(all))
	for _, draft := range all {
		drafts = append(drafts, draft)
	}
	sort.Slice(drafts, func(i, j int) bool {
		if drafts[i].CreatedAt.Equal(drafts[j].CreatedAt) {
			return drafts[i].ID < drafts[j].ID
		}
		return drafts[i].CreatedAt.Before(drafts[j].CreatedAt)
	})
	return drafts, nil
}

func (s *service) PurgeOrphans(ctx context.Context) (int, error) {
	orphans, err := s.Pending(ctx)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, draft := range orphans {
		s.mu.Lock()
		_, waiting := s.waiters[draft.ID]
		s.mu.Unlock()
		if waiting {
			// A live request is blocked on this draft; it is not an orphan.
			continue
		}
		if err := s.store.Remove(ctx, draft.ID); err != nil {
			return purged, err
		}
		purged++
		_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicRequestExpired, Data: draft})
	}
	return purged, nil
}

func (s *service) Queue() messaging.Queue[approval.Event] { return s.events }

// consumeOrAbandon resolves the race between a decision and a waiter giving
// up (timeout, cancelled context, failed present). Decide sends under the
// service mutex, so after unregistering the waiter here any decision it could
// ever receive is already buffered; draining the buffer tells the two
// outcomes apart. When no decision raced in, the draft is removed so nothing
// leaks in the pending store.
func (s *service) consumeOrAbandon(ctx context.Context, id string, waiter chan *model.Decision) *model.Decision {
	s.mu.Lock()
	delete(s.waiters, id)
	select {
	case decision := <-waiter:
		s.mu.Unlock()
		return decision
	default:
	}
	// A removal failure leaves an orphan behind; it is purged at next startup.
	_ = s.store.Remove(ctx, id)
	s.mu.Unlock()
	return nil
}

// unregister drops the waiter for a draft that never became visible.
func (s *service) unregister(id string) {
	s.mu.Lock()
	delete(s.waiters, id)
	s.mu.Unlock()
}

var _ approval.Service = (*service)(nil)
