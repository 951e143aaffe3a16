// Package imaging covers the image half of the pipeline: synthesizing a
// preview from an image prompt and drawing optional captions onto it. The
// fal sub-package provides the production synthesizer.
package imaging

import "context"

// Synthesizer renders an image prompt into a locally stored preview file and
// returns its path. The caller owns the file and removes it once the cycle
// resolves.
type Synthesizer interface {
	Render(ctx context.Context, imagePrompt string) (string, error)
}
