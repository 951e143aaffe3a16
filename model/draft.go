package model

import (
	"time"
	"unicode/utf8"
)

// MaxPostRunes is the platform post length limit applied to draft text and
// reviewer-edited replacements.
const MaxPostRunes = 280

// Draft represents a candidate post awaiting a reviewer decision.
type Draft struct {
	ID        string    `json:"id"`                  // time-ordered, unique among concurrently pending drafts
	Text      string    `json:"text"`                // proposed body, at most MaxPostRunes runes
	ImagePath string    `json:"imagePath,omitempty"` // locally materialized preview image
	CreatedAt time.Time `json:"createdAt"`           // RFC-3339 timestamp
}

// Clone returns a shallow copy so stores can hand out drafts without
// exposing their internal record to caller mutation.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

// ValidText reports whether text fits the platform limit.
func ValidText(text string) bool {
	return text != "" && utf8.RuneCountInString(text) <= MaxPostRunes
}

// TruncateText trims text to MaxPostRunes runes, preferring the last word
// boundary so a cut never ends mid-word.
func TruncateText(text string) string {
	if utf8.RuneCountInString(text) <= MaxPostRunes {
		return text
	}
	runes := []rune(text)
	cut := runes[:MaxPostRunes]
	for i := len(cut) - 1; i > 0; i-- {
		if cut[i] == ' ' {
			cut = cut[:i]
			break
		}
	}
	return string(cut)
}
