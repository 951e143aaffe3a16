package approval

import (
	"context"
	"errors"
	"time"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/messaging"
)

// ErrAlreadyDecided is returned by Decide when the draft has already been
// resolved (or never existed). Duplicate button presses after resolution map
// to this error and must stay side-effect free.
var ErrAlreadyDecided = errors.New("draft already decided")

// Service bridges the generation pipeline and the review channel: it submits
// a draft, blocks the calling workflow until a decision or timeout arrives
// and returns a normalized result.
type Service interface {
	// RequestApproval creates a draft from text and imagePath, stores it as
	// pending, presents it on the channel and suspends until a decision
	// arrives or timeout elapses. A timeout is returned as a regular
	// Decision with ActionTimeout, not as an error; a failed presentation
	// wraps model.ErrChannelUnavailable. A decision racing the timeout is
	// resolved in favour of whichever consumes the draft first.
	RequestApproval(ctx context.Context, text, imagePath string, timeout time.Duration) (*model.Decision, error)

	// Decide records the terminal decision for a pending draft and removes
	// it, atomically: the first caller wins, later callers receive
	// ErrAlreadyDecided. For ActionApprove finalText becomes the published
	// text (reviewer-edited text included); for ActionDeny it is ignored.
	Decide(ctx context.Context, id string, action model.Action, finalText string) (*model.Decision, error)

	// Lookup returns the pending draft or nil when absent or resolved.
	Lookup(ctx context.Context, id string) (*model.Draft, error)

	// Pending returns all drafts awaiting a decision, oldest first.
	Pending(ctx context.Context) ([]*model.Draft, error)

	// PurgeOrphans removes drafts left behind by a previous process run and
	// reports how many were purged. Orphans are not re-presented.
	PurgeOrphans(ctx context.Context) (int, error)

	// Queue exposes the lifecycle event stream.
	Queue() messaging.Queue[Event]
}
