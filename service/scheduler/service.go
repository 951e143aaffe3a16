package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mechapengu/postpilot/internal/clock"
	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/policy"
	"github.com/mechapengu/postpilot/progress"
	"github.com/mechapengu/postpilot/service/approval"
	"github.com/mechapengu/postpilot/service/channel"
	"github.com/mechapengu/postpilot/service/generator"
	"github.com/mechapengu/postpilot/service/history"
	"github.com/mechapengu/postpilot/service/imaging"
	"github.com/mechapengu/postpilot/service/publisher"
	"github.com/mechapengu/postpilot/tracing"
)

// State tracks where the posting loop currently is. The machine reports busy
// from Generating until the cycle resolves back into Sleeping.
type State string

const (
	StateIdle             State = "idle"
	StateGenerating       State = "generating"
	StateAwaitingApproval State = "awaitingApproval"
	StatePublishing       State = "publishing"
	StateSleeping         State = "sleeping"
)

// Config holds the loop timing knobs.
type Config struct {
	// SleepMin and SleepMax bound the randomized sleep between cycles.
	SleepMin time.Duration
	SleepMax time.Duration

	// ErrorBackoff is the sleep applied after a failed cycle.
	ErrorBackoff time.Duration

	// HistoryContext is how many recent posts are fed back to the generator.
	HistoryContext int
}

// DefaultConfig returns the stock loop timings.
func DefaultConfig() Config {
	return Config{
		SleepMin:       time.Hour,
		SleepMax:       3 * time.Hour,
		ErrorBackoff:   5 * time.Minute,
		HistoryContext: 3,
	}
}

// Service runs the generate-review-publish loop.
type Service struct {
	config    Config
	generator generator.Service
	imaging   imaging.Synthesizer
	approval  approval.Service
	publisher publisher.Service
	history   history.Store
	channel   channel.Channel
	policy    *policy.Policy

	mu      sync.Mutex
	state   State
	started bool
	cancel  context.CancelFunc

	wakeCh     chan struct{}
	shutdownCh chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// New creates the scheduler. A generator and a publisher are required; the
// approval service, image synthesizer, history store and notification channel
// are optional and their absence narrows the cycle accordingly.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		state:      StateIdle,
		wakeCh:     make(chan struct{}, 1),
		shutdownCh: make(chan struct{}),
	}
	for _, option := range options {
		option(s)
	}
	if s.generator == nil {
		return nil, fmt.Errorf("content generator is required")
	}
	if s.publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if s.config.SleepMax < s.config.SleepMin {
		return nil, fmt.Errorf("sleep range is inverted: min %v > max %v", s.config.SleepMin, s.config.SleepMax)
	}
	return s, nil
}

// Start launches the posting loop. The first cycle begins immediately.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(runCtx)
	return nil
}

// Shutdown stops the loop. A sleep or a pending review is abandoned promptly;
// a publish already in flight completes first.
func (s *Service) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.shutdownCh)
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
	s.wg.Wait()
}

// State returns the current loop state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether a cycle is in progress.
func (s *Service) Busy() bool {
	switch s.State() {
	case StateGenerating, StateAwaitingApproval, StatePublishing:
		return true
	}
	return false
}

// Wake requests an immediate cycle. It reports false when a cycle is already
// in progress; repeated wake requests while sleeping collapse into one.
func (s *Service) Wake() bool {
	if s.Busy() {
		return false
	}
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
	return true
}

// RunOnce executes a single cycle synchronously. Intended for demos and
// unattended one-shot runs; the long-running loop uses Start.
func (s *Service) RunOnce(ctx context.Context) error {
	defer s.setState(StateIdle)
	err := s.runCycle(ctx)
	if err != nil && ctx.Err() == nil {
		progress.UpdateCtx(ctx, progress.Delta{Failed: 1})
	}
	return err
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		err := s.runCycle(ctx)
		if ctx.Err() != nil {
			s.setState(StateIdle)
			return
		}
		sleepFor := clock.Between(s.config.SleepMin, s.config.SleepMax)
		if err != nil {
			progress.UpdateCtx(ctx, progress.Delta{Failed: 1})
			log.Error().Err(err).Dur("backoff", s.config.ErrorBackoff).Msg("posting cycle failed")
			sleepFor = s.config.ErrorBackoff
		}
		s.setState(StateSleeping)
		log.Info().Dur("sleep", sleepFor).Msg("cycle resolved, sleeping")
		if !s.sleep(ctx, sleepFor) {
			s.setState(StateIdle)
			return
		}
		s.setState(StateIdle)
	}
}

// sleep suspends until the duration elapses or a manual wake arrives. It
// reports false when the loop should terminate instead of cycling again.
func (s *Service) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.shutdownCh:
		return false
	case <-timer.C:
		return true
	case <-s.wakeCh:
		log.Info().Msg("manual trigger, waking early")
		return true
	}
}

func (s *Service) runCycle(ctx context.Context) (err error) {
	// A wake that raced the start of this cycle is satisfied by it.
	select {
	case <-s.wakeCh:
	default:
	}

	ctx, span := tracing.StartSpan(ctx, "scheduler.cycle", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	progress.UpdateCtx(ctx, progress.Delta{Cycles: 1})
	s.setState(StateGenerating)

	draft, err := s.generate(ctx)
	if err != nil {
		return err
	}
	imagePath, err := s.render(ctx, draft)
	if err != nil {
		return err
	}
	if imagePath != "" {
		defer s.removeImage(imagePath)
	}
	progress.UpdateCtx(ctx, progress.Delta{Generated: 1})

	decision, err := s.review(ctx, draft.Text, imagePath)
	if err != nil {
		return err
	}
	switch decision.Action {
	case model.ActionApprove:
		return s.publish(ctx, decision.FinalText, imagePath)
	case model.ActionDeny:
		progress.UpdateCtx(ctx, progress.Delta{Denied: 1})
		log.Info().Str("text", draft.Text).Msg("draft denied by reviewer")
	case model.ActionTimeout:
		progress.UpdateCtx(ctx, progress.Delta{TimedOut: 1})
		log.Info().Str("text", draft.Text).Msg("review window elapsed, skipping draft")
	}
	return nil
}

func (s *Service) generate(ctx context.Context) (draft *generator.Draft, err error) {
	ctx, span := tracing.StartSpan(ctx, "scheduler.generate", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	var recent []string
	if s.history != nil {
		if recent, err = s.history.Recent(ctx, s.config.HistoryContext); err != nil {
			log.Warn().Err(err).Msg("history unavailable, generating without context")
			err = nil
		}
	}
	if draft, err = s.generator.Generate(ctx, recent); err != nil {
		return nil, err
	}
	log.Info().Str("text", draft.Text).Msg("generated draft")
	return draft, nil
}

// render materializes the preview image and draws the optional captions. An
// absent synthesizer yields a text-only draft.
func (s *Service) render(ctx context.Context, draft *generator.Draft) (path string, err error) {
	if s.imaging == nil {
		return "", nil
	}
	ctx, span := tracing.StartSpan(ctx, "scheduler.render", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	if path, err = s.imaging.Render(ctx, draft.ImagePrompt); err != nil {
		return "", err
	}
	if err = imaging.Caption(path, draft.OverlayTop, draft.OverlayBottom); err != nil {
		s.removeImage(path)
		return "", err
	}
	return path, nil
}

// review routes the draft through the approval layer according to the
// effective policy. Direct-publish outcomes are synthesized as approvals so
// the cycle has a single decision path.
func (s *Service) review(ctx context.Context, text, imagePath string) (decision *model.Decision, err error) {
	pol := s.effectivePolicy(ctx)
	if !pol.RequiresReview() {
		return directApproval(text), nil
	}
	if s.approval == nil {
		if pol.AllowsDirect() {
			log.Warn().Msg("no review channel configured, publishing directly")
			return directApproval(text), nil
		}
		return nil, fmt.Errorf("approval is required but no review channel is configured: %w", model.ErrChannelUnavailable)
	}

	ctx, span := tracing.StartSpan(ctx, "scheduler.review", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	s.setState(StateAwaitingApproval)

	decision, err = s.approval.RequestApproval(ctx, text, imagePath, pol.ReviewTimeout())
	if err != nil {
		if pol.AllowsDirect() && errors.Is(err, model.ErrChannelUnavailable) {
			log.Warn().Err(err).Msg("review channel unavailable, publishing directly")
			return directApproval(text), nil
		}
		return nil, err
	}
	return decision, nil
}

// publish posts the approved text and records it. The step runs detached from
// the shutdown cancellation so an interrupt never abandons a post mid-flight.
func (s *Service) publish(ctx context.Context, text, imagePath string) (err error) {
	s.setState(StatePublishing)
	postCtx, span := tracing.StartSpan(context.WithoutCancel(ctx), "scheduler.publish", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	postID, err := s.publisher.Publish(postCtx, text, imagePath)
	if err != nil {
		return err
	}
	span.WithAttributes(map[string]string{"post.id": postID})
	progress.UpdateCtx(ctx, progress.Delta{Published: 1})
	log.Info().Str("id", postID).Str("text", text).Msg("post published")

	if s.history != nil {
		if herr := s.history.Append(postCtx, text); herr != nil {
			log.Error().Err(herr).Msg("post published but history append failed")
		}
	}
	if s.channel != nil {
		if nerr := s.channel.Notify(postCtx, channel.NoticePosted); nerr != nil {
			log.Warn().Err(nerr).Msg("posted notice not delivered")
		}
	}
	return nil
}

func (s *Service) effectivePolicy(ctx context.Context) *policy.Policy {
	if p := policy.FromContext(ctx); p != nil {
		return p
	}
	return s.policy
}

func (s *Service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Service) removeImage(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Str("path", path).Msg("temp image not removed")
	}
}

func directApproval(text string) *model.Decision {
	return &model.Decision{Action: model.ActionApprove, FinalText: text, DecidedAt: clock.Now()}
}
