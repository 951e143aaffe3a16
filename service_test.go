package postpilot_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechapengu/postpilot"
	"github.com/mechapengu/postpilot/config"
	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/policy"
	"github.com/mechapengu/postpilot/service/approval"
	"github.com/mechapengu/postpilot/service/channel"
	channelmem "github.com/mechapengu/postpilot/service/channel/memory"
	"github.com/mechapengu/postpilot/service/generator"
	pendingmem "github.com/mechapengu/postpilot/service/pending/memory"
	"github.com/mechapengu/postpilot/service/publisher/dryrun"
)

type generatorFunc func(ctx context.Context, history []string) (*generator.Draft, error)

func (f generatorFunc) Generate(ctx context.Context, history []string) (*generator.Draft, error) {
	return f(ctx, history)
}

func staticGenerator(text string) generatorFunc {
	return func(context.Context, []string) (*generator.Draft, error) {
		return &generator.Draft{Text: text, ImagePrompt: "a penguin at a keyboard"}, nil
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRunOncePublishesDirectly(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{DryRun: true}
	cfg.Approval.Mode = policy.ModeDisabled

	pub := dryrun.New()
	svc, err := postpilot.New(ctx, cfg,
		postpilot.WithGenerator(staticGenerator("direct post")),
		postpilot.WithPublisher(pub))
	require.NoError(t, err)
	require.Nil(t, svc.Approval())

	require.NoError(t, svc.RunOnce(ctx))

	require.Len(t, pub.Posts(), 1)
	assert.Equal(t, "direct post", pub.Posts()[0].Text)

	texts, err := svc.History().Recent(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"direct post"}, texts)

	snapshot := svc.Progress()
	assert.Equal(t, 1, snapshot.Cycles)
	assert.Equal(t, 1, snapshot.Published)
}

func TestStartApprovalFlow(t *testing.T) {
	cfg := &config.Config{DryRun: true}
	cfg.Approval.Mode = policy.ModeRequired
	cfg.Approval.Timeout = time.Minute
	cfg.Schedule.SleepMin = time.Hour
	cfg.Schedule.SleepMax = 2 * time.Hour

	ch := channelmem.New()
	pub := dryrun.New()
	svc, err := postpilot.New(context.Background(), cfg,
		postpilot.WithGenerator(staticGenerator("needs review")),
		postpilot.WithPublisher(pub),
		postpilot.WithChannel(ch))
	require.NoError(t, err)
	require.NotNil(t, svc.Approval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx))
	assert.True(t, ch.Started())

	stop := approval.AutoApprove(ctx, svc.Approval(), 5*time.Millisecond)
	defer stop()

	waitFor(t, "published post", func() bool { return len(pub.Posts()) == 1 })
	assert.Equal(t, "needs review", pub.Posts()[0].Text)
	waitFor(t, "posted notice", func() bool {
		for _, notice := range ch.Notices() {
			if notice == channel.NoticePosted {
				return true
			}
		}
		return false
	})
	waitFor(t, "event stream drained", func() bool {
		return svc.Approval().Queue().(interface{ Size() int }).Size() == 0
	})

	svc.Shutdown()
	assert.False(t, ch.Started())
}

func TestStartPurgesStaleDrafts(t *testing.T) {
	store := pendingmem.New()
	stale := &model.Draft{ID: "stale-1", Text: "left behind", CreatedAt: time.Now()}
	require.NoError(t, store.Put(context.Background(), stale))

	cfg := &config.Config{DryRun: true}
	cfg.Approval.Mode = policy.ModeRequired
	failing := generatorFunc(func(context.Context, []string) (*generator.Draft, error) {
		return nil, model.ErrGenerationFailed
	})

	ch := channelmem.New()
	svc, err := postpilot.New(context.Background(), cfg,
		postpilot.WithGenerator(failing),
		postpilot.WithChannel(ch),
		postpilot.WithPendingStore(store))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx))
	defer svc.Shutdown()

	drafts, err := svc.Approval().Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drafts)

	purgeNotice := false
	for _, notice := range ch.Notices() {
		if strings.Contains(notice, "Purged 1") {
			purgeNotice = true
		}
	}
	assert.True(t, purgeNotice, "reviewer should be told about the purge")
}

func TestNewRequiresGenerator(t *testing.T) {
	_, err := postpilot.New(context.Background(), &config.Config{DryRun: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xai api key")
}

func TestNewRejectsInvalidApprovalMode(t *testing.T) {
	cfg := &config.Config{DryRun: true}
	cfg.Approval.Mode = "sometimes"
	_, err := postpilot.New(context.Background(), cfg,
		postpilot.WithGenerator(staticGenerator("unused")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "approval mode")
}

func TestDecideWithoutReviewChannel(t *testing.T) {
	cfg := &config.Config{DryRun: true}
	cfg.Approval.Mode = policy.ModeDisabled
	svc, err := postpilot.New(context.Background(), cfg,
		postpilot.WithGenerator(staticGenerator("unused")))
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), "missing", model.ActionApprove, "text")
	assert.ErrorIs(t, err, approval.ErrAlreadyDecided)

	draft, err := svc.Lookup(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, draft)
}
