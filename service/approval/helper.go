package approval

import (
	"context"
	"time"

	"github.com/mechapengu/postpilot/model"
)

// DecisionFunc decides what to do with a pending draft.
// Return (model.ActionApprove, text) to approve with the given final text
// (empty text keeps the draft text), or (model.ActionDeny, "") to deny.
type DecisionFunc func(draft *model.Draft) (action model.Action, finalText string)

// AutoDecider starts a goroutine that polls Pending and applies fn to every
// draft. It returns stop() – call it (or cancel ctx) to exit. Intended for
// tests and unattended deployments without a live reviewer.
func AutoDecider(ctx context.Context,
	svc Service,
	fn DecisionFunc,
	interval time.Duration) (stop func()) {

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				drafts, _ := svc.Pending(ctx)
				for _, draft := range drafts {
					action, text := fn(draft)
					if text == "" {
						text = draft.Text
					}
					_, _ = svc.Decide(ctx, draft.ID, action, text)
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves all pending drafts unchanged.
func AutoApprove(ctx context.Context,
	svc Service,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(d *model.Draft) (model.Action, string) { return model.ActionApprove, d.Text }, interval)
}

// AutoDeny automatically denies all pending drafts.
func AutoDeny(ctx context.Context,
	svc Service,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(*model.Draft) (model.Action, string) { return model.ActionDeny, "" }, interval)
}
