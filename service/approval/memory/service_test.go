package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/approval"
	approvalmem "github.com/mechapengu/postpilot/service/approval/memory"
	pendingmem "github.com/mechapengu/postpilot/service/pending/memory"
)

// stubChannel records presents and notices; Present can be scripted to fail.
type stubChannel struct {
	mu         sync.Mutex
	presented  []*model.Draft
	notices    []string
	presentErr error
}

func (c *stubChannel) Present(_ context.Context, draft *model.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.presentErr != nil {
		return c.presentErr
	}
	c.presented = append(c.presented, draft)
	return nil
}

func (c *stubChannel) Notify(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, text)
	return nil
}

func (c *stubChannel) Start(context.Context) error { return nil }
func (c *stubChannel) Shutdown()                   {}

func (c *stubChannel) lastNotice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.notices) == 0 {
		return ""
	}
	return c.notices[len(c.notices)-1]
}

func newService(t *testing.T, ch *stubChannel) (approval.Service, *pendingmem.Store, chan *model.Draft) {
	t.Helper()
	store := pendingmem.New()
	presented := make(chan *model.Draft, 4)
	svc, err := approvalmem.New(store, ch,
		approvalmem.WithPresentHook(func(d *model.Draft) { presented <- d }))
	require.NoError(t, err)
	return svc, store, presented
}

func TestRequestApprovalDecisions(t *testing.T) {
	testCases := []struct {
		name           string
		action         model.Action
		finalText      string
		expectedAction model.Action
		expectedText   string
	}{
		{
			name:           "approve keeps draft text",
			action:         model.ActionApprove,
			expectedAction: model.ActionApprove,
			expectedText:   "gm wagmi",
		},
		{
			name:           "approve with edited text",
			action:         model.ActionApprove,
			finalText:      "gm wagmi, edited",
			expectedAction: model.ActionApprove,
			expectedText:   "gm wagmi, edited",
		},
		{
			name:           "deny carries no final text",
			action:         model.ActionDeny,
			expectedAction: model.ActionDeny,
			expectedText:   "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			ch := &stubChannel{}
			svc, store, presented := newService(t, ch)

			go func() {
				draft := <-presented
				_, _ = svc.Decide(ctx, draft.ID, tc.action, tc.finalText)
			}()

			decision, err := svc.RequestApproval(ctx, "gm wagmi", "/tmp/a.png", time.Second)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedAction, decision.Action)
			assert.Equal(t, tc.expectedText, decision.FinalText)

			// the draft must be consumed, not linger as pending
			all, err := store.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestRequestApprovalTimeout(t *testing.T) {
	ctx := context.Background()
	ch := &stubChannel{}
	svc, store, _ := newService(t, ch)

	started := time.Now()
	decision, err := svc.RequestApproval(ctx, "hello", "/tmp/a.png", 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, model.ActionTimeout, decision.Action)
	assert.Empty(t, decision.FinalText)
	assert.Less(t, time.Since(started), time.Second, "timeout must fire close to the configured window")

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "no draft may leak on timeout")
	assert.NotEmpty(t, ch.lastNotice(), "reviewer is told the window elapsed")
}

func TestDecideIsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	ch := &stubChannel{}
	svc, _, presented := newService(t, ch)

	done := make(chan *model.Decision, 1)
	go func() {
		decision, err := svc.RequestApproval(ctx, "gm wagmi", "/tmp/a.png", time.Second)
		if err == nil {
			done <- decision
		}
	}()

	draft := <-presented

	// concurrent approve and deny on the same id: exactly one winner
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, action := range []model.Action{model.ActionApprove, model.ActionDeny} {
		wg.Add(1)
		go func(action model.Action) {
			defer wg.Done()
			_, err := svc.Decide(ctx, draft.ID, action, "")
			results <- err
		}(action)
	}
	wg.Wait()
	close(results)

	var winners, losers int
	for err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, approval.ErrAlreadyDecided)
		losers++
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, losers)

	decision := <-done
	assert.Contains(t, []model.Action{model.ActionApprove, model.ActionDeny}, decision.Action)

	// a late duplicate press stays side-effect free
	_, err := svc.Decide(ctx, draft.ID, model.ActionApprove, "")
	assert.ErrorIs(t, err, approval.ErrAlreadyDecided)
}

func TestPresentFailureSurfacesChannelUnavailable(t *testing.T) {
	ctx := context.Background()
	ch := &stubChannel{presentErr: fmt.Errorf("telegram down: %w", model.ErrChannelUnavailable)}
	svc, store, _ := newService(t, ch)

	_, err := svc.RequestApproval(ctx, "gm", "/tmp/a.png", time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrChannelUnavailable)
	assert.False(t, errors.Is(err, model.ErrTimeout), "channel loss is not a timeout")

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "a draft that was never presented must not stay pending")
}

func TestDecideValidation(t *testing.T) {
	ctx := context.Background()
	ch := &stubChannel{}
	svc, store, _ := newService(t, ch)

	_, err := svc.Decide(ctx, "", model.ActionApprove, "")
	assert.ErrorIs(t, err, approval.ErrAlreadyDecided)

	_, err = svc.Decide(ctx, "missing", model.ActionApprove, "")
	assert.ErrorIs(t, err, approval.ErrAlreadyDecided)

	_, err = svc.Decide(ctx, "any", model.ActionTimeout, "")
	assert.Error(t, err, "a reviewer cannot record a timeout")

	// over-limit replacement text is rejected and the draft stays pending
	require.NoError(t, store.Put(ctx, &model.Draft{ID: "d1", Text: "short"}))
	_, err = svc.Decide(ctx, "d1", model.ActionApprove, string(make([]rune, model.MaxPostRunes+1)))
	assert.Error(t, err)
	draft, err := svc.Lookup(ctx, "d1")
	require.NoError(t, err)
	assert.NotNil(t, draft)
}

func TestRequestApprovalValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, &stubChannel{})

	_, err := svc.RequestApproval(ctx, "", "/tmp/a.png", time.Second)
	assert.Error(t, err)
}

func TestPendingAndPurgeOrphans(t *testing.T) {
	ctx := context.Background()
	ch := &stubChannel{}
	svc, store, _ := newService(t, ch)

	// drafts left behind by a previous run
	older := time.Now().Add(-time.Hour)
	require.NoError(t, store.Put(ctx, &model.Draft{ID: "b", Text: "second", CreatedAt: older.Add(time.Minute)}))
	require.NoError(t, store.Put(ctx, &model.Draft{ID: "a", Text: "first", CreatedAt: older}))

	drafts, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "a", drafts[0].ID, "pending drafts are ordered oldest first")

	purged, err := svc.PurgeOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	drafts, err = svc.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	ch := &stubChannel{}
	svc, _, presented := newService(t, ch)

	go func() {
		draft := <-presented
		_, _ = svc.Decide(ctx, draft.ID, model.ActionApprove, "")
	}()
	_, err := svc.RequestApproval(ctx, "gm", "/tmp/a.png", time.Second)
	require.NoError(t, err)

	topics := map[string]bool{}
	for i := 0; i < 2; i++ {
		consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
		message, err := svc.Queue().Consume(consumeCtx)
		cancel()
		require.NoError(t, err)
		topics[message.T().Topic] = true
		require.NoError(t, message.Ack())
	}
	assert.True(t, topics[approval.TopicRequestCreated])
	assert.True(t, topics[approval.TopicDecisionCreated])
}
