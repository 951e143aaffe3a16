// Package publisher defines the outbound posting contract. The x sub-package
// posts to the X API; dryrun records posts instead of sending them.
package publisher

import "context"

// Service publishes a post with an attached image and returns the platform
// assigned post id.
type Service interface {
	Publish(ctx context.Context, text, imagePath string) (string, error)
}
