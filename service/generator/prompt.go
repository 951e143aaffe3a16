package generator

import (
	"fmt"
	"strings"

	"github.com/mechapengu/postpilot/model"
)

// Response markers the model is instructed to emit. ParseResponse locates
// them anywhere in the completion, so leading chatter does not break parsing.
const (
	markerTweet  = "Tweet: "
	markerImage  = "Image prompt: "
	markerTop    = "Top caption: "
	markerBottom = "Bottom caption: "
)

// BuildPrompt renders the single user message sent to the model: persona
// identity, recent history and the output format instruction.
func BuildPrompt(persona *Persona, history []string) string {
	if persona == nil {
		persona = DefaultPersona()
	}
	previous := "No previous tweets."
	if len(history) > 0 {
		previous = strings.Join(history, "\n")
	}
	var b strings.Builder
	b.WriteString(persona.Identity())
	b.WriteString("\nPrevious tweets:\n")
	b.WriteString(previous)
	b.WriteString("\nGenerate a new tweet (under 280 characters) and an image prompt for a cute related image.")
	b.WriteString(" Optionally add short meme captions for the image.")
	b.WriteString(" Format: Tweet: [text]\nImage prompt: [prompt]\nTop caption: [text]\nBottom caption: [text]")
	return b.String()
}

// ParseResponse extracts the draft fields from a model completion. The tweet
// and image prompt are mandatory, captions optional. Over-limit tweet text is
// trimmed to the platform bound rather than rejected.
func ParseResponse(content string) (*Draft, error) {
	text, ok := lineAfter(content, markerTweet)
	if !ok || text == "" {
		return nil, fmt.Errorf("response has no tweet text: %w", model.ErrGenerationFailed)
	}
	imagePrompt, ok := blockAfter(content, markerImage)
	if !ok || imagePrompt == "" {
		return nil, fmt.Errorf("response has no image prompt: %w", model.ErrGenerationFailed)
	}
	draft := &Draft{
		Text:        model.TruncateText(text),
		ImagePrompt: imagePrompt,
	}
	draft.OverlayTop, _ = lineAfter(content, markerTop)
	draft.OverlayBottom, _ = lineAfter(content, markerBottom)
	return draft, nil
}

// lineAfter returns the trimmed text between marker and the end of its line.
func lineAfter(content, marker string) (string, bool) {
	idx := strings.Index(content, marker)
	if idx == -1 {
		return "", false
	}
	rest := content[idx+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest), true
}

// blockAfter returns the trimmed text between marker and the next caption
// marker, or the end of content. The image prompt may span multiple lines.
func blockAfter(content, marker string) (string, bool) {
	idx := strings.Index(content, marker)
	if idx == -1 {
		return "", false
	}
	rest := content[idx+len(marker):]
	for _, stop := range []string{markerTop, markerBottom} {
		if cut := strings.Index(rest, stop); cut != -1 {
			rest = rest[:cut]
		}
	}
	return strings.TrimSpace(rest), true
}
