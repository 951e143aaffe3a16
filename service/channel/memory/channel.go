// Package memory provides an in-process review channel for tests and the
// demo. It records presentations and notices; reviewer actions are scripted
// through a channel.Handler.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/channel"
)

// Channel records everything the pipeline would have shown a reviewer.
type Channel struct {
	mu         sync.Mutex
	presented  []*model.Draft
	notices    []string
	presentErr error
	started    bool
}

var _ channel.Channel = (*Channel)(nil)

func New() *Channel {
	return &Channel{}
}

// FailPresent makes every subsequent Present fail, wrapped in
// model.ErrChannelUnavailable. Passing nil restores delivery.
func (c *Channel) FailPresent(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presentErr = err
}

func (c *Channel) Present(_ context.Context, draft *model.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.presentErr != nil {
		return fmt.Errorf("present %s: %v: %w", draft.ID, c.presentErr, model.ErrChannelUnavailable)
	}
	c.presented = append(c.presented, draft.Clone())
	return nil
}

func (c *Channel) Notify(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, text)
	return nil
}

func (c *Channel) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

func (c *Channel) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
}

// Started reports whether the channel pump is running.
func (c *Channel) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Presented returns clones of every draft shown so far.
func (c *Channel) Presented() []*model.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Draft, len(c.presented))
	for i, draft := range c.presented {
		out[i] = draft.Clone()
	}
	return out
}

// Notices returns every notice sent so far.
func (c *Channel) Notices() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.notices))
	copy(out, c.notices)
	return out
}
