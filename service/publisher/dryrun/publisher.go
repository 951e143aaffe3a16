// Package dryrun provides a publisher that records posts instead of sending
// them, backing test-mode deployments and the demo.
package dryrun

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mechapengu/postpilot/service/publisher"
)

// Post captures a publish call.
type Post struct {
	Text      string
	ImagePath string
}

// Publisher accepts every publish and remembers what would have been posted.
type Publisher struct {
	mu    sync.Mutex
	posts []Post
}

var _ publisher.Service = (*Publisher)(nil)

func New() *Publisher {
	return &Publisher{}
}

// Publish records the post and returns a synthetic id.
func (p *Publisher) Publish(_ context.Context, text, imagePath string) (string, error) {
	p.mu.Lock()
	p.posts = append(p.posts, Post{Text: text, ImagePath: imagePath})
	id := fmt.Sprintf("dry-run-%d", len(p.posts))
	p.mu.Unlock()

	log.Info().Str("id", id).Str("text", text).Str("image", imagePath).Msg("dry-run publish")
	return id, nil
}

// Posts returns a copy of everything published so far.
func (p *Publisher) Posts() []Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Post, len(p.posts))
	copy(out, p.posts)
	return out
}
