package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/approval"
)

// Reply is the channel-facing outcome of a reviewer event: the text to show
// and whether the draft reached a terminal state (so message channels can
// drop the action keyboard).
type Reply struct {
	Text     string
	Terminal bool
	Decision *model.Decision
}

// Handler implements the reviewer protocol shared by every channel: the
// three draft actions, the edit session flow and the manual trigger. Channel
// implementations translate transport events into Handler calls and render
// the returned Reply.
type Handler struct {
	decider  Decider
	waker    Waker
	sessions *Sessions
}

// NewHandler wires the protocol against the approval surface. waker may be
// nil when manual triggering is not offered.
func NewHandler(decider Decider, waker Waker) *Handler {
	return &Handler{decider: decider, waker: waker, sessions: NewSessions()}
}

// Approve resolves the draft as approved with its stored text.
func (h *Handler) Approve(ctx context.Context, sessionKey, draftID string) Reply {
	if h.lookup(ctx, draftID) == nil {
		return Reply{Text: NoticeAlreadyProcessed, Terminal: true}
	}
	decision, err := h.decider.Decide(ctx, draftID, model.ActionApprove, "")
	if err != nil {
		h.logDecideFailure(draftID, err)
		return Reply{Text: NoticeAlreadyProcessed, Terminal: true}
	}
	h.sessions.Close(sessionKey)
	return Reply{Text: ApprovedCaption(decision.FinalText), Terminal: true, Decision: decision}
}

// Deny resolves the draft as denied; no post happens and nothing enters the
// history.
func (h *Handler) Deny(ctx context.Context, sessionKey, draftID string) Reply {
	draft := h.lookup(ctx, draftID)
	if draft == nil {
		return Reply{Text: NoticeAlreadyProcessed, Terminal: true}
	}
	decision, err := h.decider.Decide(ctx, draftID, model.ActionDeny, "")
	if err != nil {
		h.logDecideFailure(draftID, err)
		return Reply{Text: NoticeAlreadyProcessed, Terminal: true}
	}
	h.sessions.Close(sessionKey)
	return Reply{Text: DeniedCaption(draft.Text), Terminal: true, Decision: decision}
}

// Edit opens an edit session: the next free-text message from the same
// session key becomes the replacement text. The draft stays pending until
// then.
func (h *Handler) Edit(ctx context.Context, sessionKey, draftID string) Reply {
	draft := h.lookup(ctx, draftID)
	if draft == nil {
		return Reply{Text: NoticeAlreadyProcessed, Terminal: true}
	}
	h.sessions.Open(sessionKey, draftID)
	return Reply{Text: EditingCaption(draft.Text)}
}

// FreeText feeds a plain reviewer message into the protocol. It reports
// consumed=false when no edit session is open for the sender, letting the
// channel ignore unrelated chatter. A replacement over the platform limit
// keeps the session open so the reviewer can retry.
func (h *Handler) FreeText(ctx context.Context, sessionKey, text string) (Reply, bool) {
	draftID, open := h.sessions.Active(sessionKey)
	if !open {
		return Reply{}, false
	}
	if !model.ValidText(text) {
		return Reply{Text: fmt.Sprintf("❌ The replacement must be 1-%d characters. Try again:", model.MaxPostRunes)}, true
	}
	decision, err := h.decider.Decide(ctx, draftID, model.ActionApprove, text)
	if err != nil {
		h.logDecideFailure(draftID, err)
		h.sessions.Close(sessionKey)
		return Reply{Text: NoticeEditStale, Terminal: true}, true
	}
	h.sessions.Close(sessionKey)
	return Reply{Text: EditApprovedText(decision.FinalText), Terminal: true, Decision: decision}, true
}

// ManualTrigger asks the scheduler to start a cycle right away.
func (h *Handler) ManualTrigger() Reply {
	if h.waker == nil {
		return Reply{Text: NoticeNoTrigger}
	}
	if h.waker.Wake() {
		return Reply{Text: NoticeWakeScheduled}
	}
	return Reply{Text: NoticeBusy}
}

func (h *Handler) lookup(ctx context.Context, draftID string) *model.Draft {
	draft, err := h.decider.Lookup(ctx, draftID)
	if err != nil {
		log.Error().Err(err).Str("draft", draftID).Msg("draft lookup failed")
		return nil
	}
	return draft
}

func (h *Handler) logDecideFailure(draftID string, err error) {
	if errors.Is(err, approval.ErrAlreadyDecided) {
		return
	}
	log.Error().Err(err).Str("draft", draftID).Msg("failed to record decision")
}

// Caption builders for the reviewer texts of the bot protocol.

// PresentCaption renders the message shown when a draft arrives for review.
func PresentCaption(text string) string {
	return fmt.Sprintf("🐧 New tweet for approval:\n\n%s\n\nApprove to post as-is, Edit to change text, or Deny to skip.", text)
}

// ApprovedCaption replaces the review message after an approval.
func ApprovedCaption(text string) string {
	return fmt.Sprintf("✅ APPROVED\n\n%s\n\nPosting to X...", text)
}

// DeniedCaption replaces the review message after a denial.
func DeniedCaption(text string) string {
	return fmt.Sprintf("❌ DENIED\n\n%s\n\nGenerating new tweet...", text)
}

// EditingCaption replaces the review message once an edit session opens.
func EditingCaption(text string) string {
	return fmt.Sprintf("✏️ EDITING\n\nCurrent text:\n%s\n\nSend me the new tweet text (under %d characters):", text, model.MaxPostRunes)
}

// EditApprovedText confirms an edit-and-approve.
func EditApprovedText(text string) string {
	return fmt.Sprintf("✅ Tweet updated and approved!\n\nNew text: %s\n\nPosting to X...", text)
}
