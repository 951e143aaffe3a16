// Package policy describes how strongly a deployment gates publishing on a
// human decision. It is carried via context so the scheduler and the approval
// layer agree on one setting per run without threading it through every call
// chain.

package policy

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Approval modes recognised by the scheduler.
const (
	ModeRequired = "required" // never publish without an explicit approve
	ModeOptional = "optional" // review when a channel is configured, publish directly when it is not
	ModeDisabled = "disabled" // publish directly, never ask
)

// DefaultTimeout is the review window granted to the reviewer before a
// pending draft expires.
const DefaultTimeout = 24 * time.Hour

// Policy represents the approval settings for the current run.
//
//   - Mode controls gating (required / optional / disabled).
//   - Timeout bounds how long a presented draft waits for a decision.
//
// A nil *Policy means "approval required with the default window", the safe
// default for an account-posting bot.
type Policy struct {
	Mode    string        `json:"mode,omitempty" yaml:"mode,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// New returns a validated policy for the given mode, using DefaultTimeout
// when timeout is zero.
func New(mode string, timeout time.Duration) (*Policy, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "":
		mode = ModeRequired
	case ModeRequired, ModeOptional, ModeDisabled:
	default:
		return nil, fmt.Errorf("unknown approval mode %q (expected %s, %s or %s)",
			mode, ModeRequired, ModeOptional, ModeDisabled)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Policy{Mode: mode, Timeout: timeout}, nil
}

// RequiresReview reports whether a draft must go through the channel before
// publishing.
func (p *Policy) RequiresReview() bool {
	return p.EffectiveMode() != ModeDisabled
}

// AllowsDirect reports whether the cycle may fall back to direct publishing
// when the review channel fails or is not configured.
func (p *Policy) AllowsDirect() bool {
	mode := p.EffectiveMode()
	return mode == ModeOptional || mode == ModeDisabled
}

// EffectiveMode resolves the mode of a possibly nil policy.
func (p *Policy) EffectiveMode() string {
	if p == nil || p.Mode == "" {
		return ModeRequired
	}
	return p.Mode
}

// ReviewTimeout resolves the review window of a possibly nil policy.
func (p *Policy) ReviewTimeout() time.Duration {
	if p == nil || p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy or nil.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
