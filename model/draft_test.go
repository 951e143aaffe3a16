package model_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/mechapengu/postpilot/model"
)

func TestValidText(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected bool
	}{
		{name: "simple", text: "gm wagmi", expected: true},
		{name: "empty", text: "", expected: false},
		{name: "exactly at limit", text: strings.Repeat("a", 280), expected: true},
		{name: "one over limit", text: strings.Repeat("a", 281), expected: false},
		{name: "multibyte runes counted as one", text: strings.Repeat("ü", 280), expected: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, model.ValidText(tc.text))
		})
	}
}

func TestTruncateText(t *testing.T) {
	short := "a short post"
	assert.Equal(t, short, model.TruncateText(short))

	long := strings.Repeat("word ", 100)
	truncated := model.TruncateText(long)
	assert.LessOrEqual(t, utf8.RuneCountInString(truncated), model.MaxPostRunes)
	assert.False(t, strings.HasSuffix(truncated, " "), "cut should land on a word boundary")
}

func TestDraftClone(t *testing.T) {
	var nilDraft *model.Draft
	assert.Nil(t, nilDraft.Clone())

	original := &model.Draft{ID: "1", Text: "gm"}
	clone := original.Clone()
	clone.Text = "changed"
	assert.Equal(t, "gm", original.Text)
}

func TestDecisionApproved(t *testing.T) {
	assert.True(t, (&model.Decision{Action: model.ActionApprove}).Approved())
	assert.False(t, (&model.Decision{Action: model.ActionDeny}).Approved())
	assert.False(t, (&model.Decision{Action: model.ActionTimeout}).Approved())
	var nilDecision *model.Decision
	assert.False(t, nilDecision.Approved())
}
