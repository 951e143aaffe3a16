package postpilot

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mechapengu/postpilot/config"
	"github.com/mechapengu/postpilot/internal/idgen"
	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/policy"
	"github.com/mechapengu/postpilot/progress"
	"github.com/mechapengu/postpilot/service/approval"
	approvalmem "github.com/mechapengu/postpilot/service/approval/memory"
	"github.com/mechapengu/postpilot/service/channel"
	"github.com/mechapengu/postpilot/service/channel/telegram"
	"github.com/mechapengu/postpilot/service/generator"
	"github.com/mechapengu/postpilot/service/generator/xai"
	"github.com/mechapengu/postpilot/service/history"
	historyfs "github.com/mechapengu/postpilot/service/history/fs"
	historymem "github.com/mechapengu/postpilot/service/history/memory"
	"github.com/mechapengu/postpilot/service/imaging"
	"github.com/mechapengu/postpilot/service/imaging/fal"
	"github.com/mechapengu/postpilot/service/messaging"
	qmem "github.com/mechapengu/postpilot/service/messaging/memory"
	"github.com/mechapengu/postpilot/service/pending"
	pendingfs "github.com/mechapengu/postpilot/service/pending/fs"
	pendingmem "github.com/mechapengu/postpilot/service/pending/memory"
	"github.com/mechapengu/postpilot/service/publisher"
	"github.com/mechapengu/postpilot/service/publisher/dryrun"
	xpub "github.com/mechapengu/postpilot/service/publisher/x"
	"github.com/mechapengu/postpilot/service/scheduler"
)

// Service assembles the posting pipeline from configuration: content
// generation, image synthesis, human review over a channel and publishing,
// all driven by the cycle scheduler.
type Service struct {
	config    *config.Config
	policy    *policy.Policy
	generator generator.Service
	imaging   imaging.Synthesizer
	publisher publisher.Service
	pending   pending.Store
	history   history.Store
	channel   channel.Channel
	handler   *channel.Handler
	approval  approval.Service
	scheduler *scheduler.Service
	events    messaging.Queue[approval.Event]

	mu       sync.Mutex
	started  bool
	tracker  *progress.Progress
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New assembles a service from cfg, filling every collaborator the options
// did not supply. ctx bounds the remote work done during assembly (persona
// load, telegram handshake).
func New(ctx context.Context, cfg *config.Config, options ...Option) (*Service, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	s := &Service{config: cfg}
	for _, option := range options {
		option(s)
	}
	if err := s.ensureBaseSetup(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) ensureBaseSetup(ctx context.Context) error {
	cfg := s.config
	if s.policy == nil {
		pol, err := cfg.Policy()
		if err != nil {
			return err
		}
		s.policy = pol
	}
	if s.pending == nil {
		if cfg.Storage.Dir != "" {
			s.pending = pendingfs.New(cfg.PendingURL())
		} else {
			s.pending = pendingmem.New()
		}
	}
	if s.history == nil {
		if cfg.Storage.Dir != "" {
			s.history = historyfs.New(cfg.HistoryURL())
		} else {
			s.history = historymem.New()
		}
	}
	if s.generator == nil {
		persona := generator.DefaultPersona()
		if cfg.PersonaURL != "" {
			loaded, err := generator.LoadPersona(ctx, cfg.PersonaURL)
			if err != nil {
				return fmt.Errorf("failed to load persona: %w", err)
			}
			persona = loaded
		}
		opts := []xai.Option{xai.WithPersona(persona)}
		if cfg.XAI.Model != "" {
			opts = append(opts, xai.WithModel(cfg.XAI.Model))
		}
		if cfg.XAI.BaseURL != "" {
			opts = append(opts, xai.WithBaseURL(cfg.XAI.BaseURL))
		}
		gen, err := xai.New(cfg.XAI.APIKey, opts...)
		if err != nil {
			return err
		}
		s.generator = gen
	}
	if s.imaging == nil && cfg.Fal.APIKey != "" {
		var opts []fal.Option
		if cfg.Fal.Model != "" {
			opts = append(opts, fal.WithModel(cfg.Fal.Model))
		}
		syn, err := fal.New(cfg.Fal.APIKey, opts...)
		if err != nil {
			return err
		}
		s.imaging = syn
	}
	if s.publisher == nil {
		if cfg.DryRun {
			s.publisher = dryrun.New()
		} else {
			pub, err := xpub.New(xpub.Credentials{
				ConsumerKey:    cfg.X.APIKey,
				ConsumerSecret: cfg.X.APISecret,
				AccessToken:    cfg.X.AccessToken,
				AccessSecret:   cfg.X.AccessTokenSecret,
			})
			if err != nil {
				return err
			}
			s.publisher = pub
		}
	}
	if s.events == nil {
		s.events = qmem.NewQueue[approval.Event](qmem.DefaultConfig())
	}

	// The channel drives approvals through the service itself (Decide,
	// Lookup, Wake below), which breaks the construction cycle between the
	// channel and the approval coordinator.
	s.handler = channel.NewHandler(s, s)
	if s.channel == nil && cfg.Telegram.Token != "" {
		tg, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token, ChatID: cfg.Telegram.ChatID}, s.handler)
		if err != nil {
			return err
		}
		s.channel = tg
	}
	if s.approval == nil && s.channel != nil {
		svc, err := approvalmem.New(s.pending, s.channel, approvalmem.WithQueue(s.events))
		if err != nil {
			return err
		}
		s.approval = svc
	}

	schedCfg := scheduler.DefaultConfig()
	if cfg.Schedule.SleepMin > 0 {
		schedCfg.SleepMin = cfg.Schedule.SleepMin
	}
	if cfg.Schedule.SleepMax > 0 {
		schedCfg.SleepMax = cfg.Schedule.SleepMax
	}
	if cfg.Schedule.ErrorBackoff > 0 {
		schedCfg.ErrorBackoff = cfg.Schedule.ErrorBackoff
	}
	if cfg.Schedule.HistoryContext > 0 {
		schedCfg.HistoryContext = cfg.Schedule.HistoryContext
	}
	sched, err := scheduler.New(
		scheduler.WithConfig(schedCfg),
		scheduler.WithGenerator(s.generator),
		scheduler.WithSynthesizer(s.imaging),
		scheduler.WithApproval(s.approval),
		scheduler.WithPublisher(s.publisher),
		scheduler.WithHistory(s.history),
		scheduler.WithChannel(s.channel),
		scheduler.WithPolicy(s.policy),
	)
	if err != nil {
		return err
	}
	s.scheduler = sched
	return nil
}

// Start purges drafts orphaned by a previous run, launches the channel pump
// and the posting loop and begins consuming approval lifecycle events for
// audit logging. The supplied context bounds the whole run; Shutdown or its
// cancellation stops the service.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	runID := idgen.New()
	ctx = policy.WithPolicy(ctx, s.policy)
	ctx, s.tracker = progress.WithNewTracker(ctx, runID, nil)
	s.mu.Unlock()

	s.purgeOrphans(ctx)

	if s.channel != nil {
		if err := s.channel.Start(ctx); err != nil {
			return fmt.Errorf("failed to start review channel: %w", err)
		}
	}
	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}
	if s.approval != nil {
		s.wg.Add(1)
		go s.auditEvents(ctx)
	}
	log.Info().
		Str("run", runID).
		Str("approval", s.policy.EffectiveMode()).
		Bool("dry_run", s.config.DryRun).
		Msg("postpilot started")
	return nil
}

// Shutdown stops the posting loop and the channel pump and waits for both to
// drain. A publish already in flight completes on its detached context.
func (s *Service) Shutdown() {
	s.stopOnce.Do(func() {
		s.scheduler.Shutdown()
		if s.channel != nil {
			s.channel.Shutdown()
		}
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
	s.wg.Wait()
}

// RunOnce executes a single posting cycle synchronously, outside the loop.
func (s *Service) RunOnce(ctx context.Context) error {
	ctx = policy.WithPolicy(ctx, s.policy)
	if _, ok := progress.FromContext(ctx); !ok {
		var tracker *progress.Progress
		ctx, tracker = progress.WithNewTracker(ctx, idgen.New(), nil)
		s.mu.Lock()
		s.tracker = tracker
		s.mu.Unlock()
	}
	return s.scheduler.RunOnce(ctx)
}

// Drafts left pending by a crashed or killed run are stale: their review
// messages are gone and their temp images no longer exist. They are dropped,
// not re-presented.
func (s *Service) purgeOrphans(ctx context.Context) {
	if s.approval == nil {
		return
	}
	purged, err := s.approval.PurgeOrphans(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("pending draft purge failed")
		return
	}
	if purged == 0 {
		return
	}
	log.Info().Int("count", purged).Msg("purged stale pending drafts")
	if s.channel == nil {
		return
	}
	notice := fmt.Sprintf("🧹 Purged %d stale draft(s) from a previous run.", purged)
	if err := s.channel.Notify(ctx, notice); err != nil {
		log.Warn().Err(err).Msg("purge notice not delivered")
	}
}

// auditEvents drains the approval lifecycle stream into the structured log.
func (s *Service) auditEvents(ctx context.Context) {
	defer s.wg.Done()
	messaging.Listen(ctx, s.approval.Queue(), logEvent)
}

func logEvent(event *approval.Event) {
	entry := log.Info().Str("topic", event.Topic)
	switch data := event.Data.(type) {
	case *model.Draft:
		entry = entry.Str("draft", data.ID)
	case *model.Decision:
		entry = entry.Str("draft", data.DraftID).Str("action", string(data.Action))
	}
	for key, value := range event.Headers {
		entry = entry.Str(key, value)
	}
	entry.Msg("approval event")
}

// Decide implements channel.Decider by delegating to the approval
// coordinator, so a channel can be constructed before the coordinator is.
func (s *Service) Decide(ctx context.Context, id string, action model.Action, finalText string) (*model.Decision, error) {
	if s.approval == nil {
		return nil, approval.ErrAlreadyDecided
	}
	return s.approval.Decide(ctx, id, action, finalText)
}

// Lookup implements channel.Decider.
func (s *Service) Lookup(ctx context.Context, id string) (*model.Draft, error) {
	if s.approval == nil {
		return nil, nil
	}
	return s.approval.Lookup(ctx, id)
}

// Wake implements channel.Waker. The manual trigger is rejected while a
// cycle is in progress.
func (s *Service) Wake() bool {
	if s.scheduler == nil {
		return false
	}
	return s.scheduler.Wake()
}

// Scheduler returns the cycle scheduler.
func (s *Service) Scheduler() *scheduler.Service {
	return s.scheduler
}

// Approval returns the approval coordinator, nil when no review channel is
// configured.
func (s *Service) Approval() approval.Service {
	return s.approval
}

// Handler returns the channel action handler.
func (s *Service) Handler() *channel.Handler {
	return s.handler
}

// History returns the posting history store.
func (s *Service) History() history.Store {
	return s.history
}

// Progress returns a snapshot of the current run counters.
func (s *Service) Progress() progress.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Snapshot()
}
