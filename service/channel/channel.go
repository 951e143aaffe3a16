// Package channel defines the human-facing review surface. A channel renders
// a draft with Approve, Edit and Deny controls, relays reviewer actions to
// the approval layer and carries out-of-band notices back to the reviewer.
package channel

import (
	"context"

	"github.com/mechapengu/postpilot/model"
)

// Channel renders drafts and runs the inbound reviewer event pump.
type Channel interface {
	// Present renders the draft text and preview image with the three
	// action controls tagged with the draft id. Delivery failure wraps
	// model.ErrChannelUnavailable.
	Present(ctx context.Context, draft *model.Draft) error

	// Notify sends a best-effort out-of-band notice to the reviewer
	// (review window elapsed, post published, drafts purged on restart).
	Notify(ctx context.Context, text string) error

	// Start launches the inbound event pump; Shutdown stops it.
	Start(ctx context.Context) error
	Shutdown()
}

// Decider is the approval surface a channel drives. Decide owns the atomic
// presence-check-and-remove per draft id, so concurrent reviewer actions on
// the same draft resolve to exactly one winner.
type Decider interface {
	Decide(ctx context.Context, id string, action model.Action, finalText string) (*model.Decision, error)
	Lookup(ctx context.Context, id string) (*model.Draft, error)
}

// Waker receives the manual "generate now" trigger. Wake reports false when
// a cycle is already in progress and the trigger was rejected.
type Waker interface {
	Wake() bool
}

// Reviewer-facing notices shared by the channel implementations.
const (
	NoticeAlreadyProcessed = "❌ Tweet data not found. It may have already been processed."
	NoticeBusy             = "⏳ A generation cycle is already running. Please wait for it to finish."
	NoticeWakeScheduled    = "🐧 Generating a new tweet now."
	NoticeEditStale        = "❌ The tweet you were editing is no longer pending."
	NoticeTimeout          = "⏰ Tweet approval timed out. Skipping..."
	NoticePosted           = "✅ Tweet posted successfully to X!"
	NoticeNoTrigger        = "Manual triggering is not available."
)
