package scheduler

import (
	"time"

	"github.com/mechapengu/postpilot/policy"
	"github.com/mechapengu/postpilot/service/approval"
	"github.com/mechapengu/postpilot/service/channel"
	"github.com/mechapengu/postpilot/service/generator"
	"github.com/mechapengu/postpilot/service/history"
	"github.com/mechapengu/postpilot/service/imaging"
	"github.com/mechapengu/postpilot/service/publisher"
)

// Option customises the scheduler.
type Option func(*Service)

// WithConfig replaces the loop timing configuration.
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithSleepRange bounds the randomized sleep between cycles.
func WithSleepRange(min, max time.Duration) Option {
	return func(s *Service) {
		s.config.SleepMin = min
		s.config.SleepMax = max
	}
}

// WithErrorBackoff sets the sleep applied after a failed cycle.
func WithErrorBackoff(backoff time.Duration) Option {
	return func(s *Service) {
		s.config.ErrorBackoff = backoff
	}
}

// WithHistoryContext sets how many recent posts feed the generator prompt.
func WithHistoryContext(n int) Option {
	return func(s *Service) {
		s.config.HistoryContext = n
	}
}

// WithGenerator sets the content generator.
func WithGenerator(generator generator.Service) Option {
	return func(s *Service) {
		s.generator = generator
	}
}

// WithSynthesizer sets the image synthesizer.
func WithSynthesizer(synthesizer imaging.Synthesizer) Option {
	return func(s *Service) {
		s.imaging = synthesizer
	}
}

// WithApproval sets the approval coordinator.
func WithApproval(approval approval.Service) Option {
	return func(s *Service) {
		s.approval = approval
	}
}

// WithPublisher sets the publisher.
func WithPublisher(publisher publisher.Service) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithHistory sets the published-post history store.
func WithHistory(store history.Store) Option {
	return func(s *Service) {
		s.history = store
	}
}

// WithChannel sets the channel used for out-of-band reviewer notices.
func WithChannel(ch channel.Channel) Option {
	return func(s *Service) {
		s.channel = ch
	}
}

// WithPolicy sets the default approval policy; a policy carried in the run
// context takes precedence.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}
