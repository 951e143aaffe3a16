package model

import "time"

// Action classifies the terminal outcome of a draft review.
type Action string

const (
	ActionApprove Action = "approve"
	ActionDeny    Action = "deny"
	ActionTimeout Action = "timeout"
)

// Decision represents the terminal outcome of a Draft's review. Exactly one
// Decision is ever produced per draft id and it is consumed at most once by
// the waiting caller.
type Decision struct {
	DraftID   string    `json:"draftId"`
	Action    Action    `json:"action"`
	FinalText string    `json:"finalText,omitempty"` // set only for approve; may differ from Draft.Text when edited
	DecidedAt time.Time `json:"decidedAt"`
}

// Approved reports whether the decision allows publishing.
func (d *Decision) Approved() bool {
	return d != nil && d.Action == ActionApprove
}
