package messaging

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Listen consumes queue until ctx is cancelled, passing every payload to
// handler and acknowledging the message afterwards. It blocks; callers run
// it on their own goroutine.
func Listen[T any](ctx context.Context, queue Queue[T], handler func(*T)) {
	for {
		msg, err := queue.Consume(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("event consume failed")
			}
			return
		}
		handler(msg.T())
		_ = msg.Ack()
	}
}
