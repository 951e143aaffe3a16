package memory

import (
	"time"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/approval"
	"github.com/mechapengu/postpilot/service/messaging"
)

type Option func(*service)

// WithQueue replaces the default in-memory lifecycle event queue, e.g. to
// share one queue between several consumers.
func WithQueue(q messaging.Queue[approval.Event]) Option {
	return func(s *service) {
		if q != nil {
			s.events = q
		}
	}
}

// WithIDGenerator overrides draft id generation. Intended for tests that need
// deterministic ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithClock overrides the time source used for draft and decision timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPresentHook registers a callback invoked after each successful present,
// before the wait begins. Tests use it to learn the generated draft id.
func WithPresentHook(fn func(*model.Draft)) Option {
	return func(s *service) { s.onPresent = fn }
}
