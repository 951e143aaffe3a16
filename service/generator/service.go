// Package generator defines the content generation contract: given recent
// posting history it produces the next candidate post together with an image
// prompt and optional meme captions. The xai sub-package provides the
// production implementation; tests substitute scripted generators.
package generator

import "context"

// Draft is the raw generation outcome before an id is assigned and an image
// is materialized.
type Draft struct {
	// Text is the proposed post body, already trimmed to the platform limit.
	Text string
	// ImagePrompt describes the companion image to synthesize.
	ImagePrompt string
	// OverlayTop and OverlayBottom hold optional captions drawn onto the
	// synthesized image before review. Empty means no caption.
	OverlayTop    string
	OverlayBottom string
}

// Service produces candidate posts. History carries prior post texts in
// chronological order so the generator can avoid repeating itself.
type Service interface {
	Generate(ctx context.Context, history []string) (*Draft, error)
}
