// Package console implements a terminal review channel: drafts render as
// text and decisions arrive as typed commands. It backs local runs where no
// messaging bot is configured.
//
// Tests can substitute the reader/writer to avoid interactive TTY
// requirements.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/channel"
)

// sessionKey identifies the single console reviewer in edit sessions.
const sessionKey = "console"

// Channel reads reviewer commands line by line: approve, edit, deny and
// generate, each optionally followed by a draft id. Without an id the most
// recently presented draft is meant.
type Channel struct {
	handler *channel.Handler
	in      io.Reader
	out     io.Writer

	mu         sync.Mutex
	current    string
	started    bool
	shutdownCh chan struct{}
	stopOnce   sync.Once
}

var _ channel.Channel = (*Channel)(nil)

// New returns a channel bound to stdin and stdout.
func New(handler *channel.Handler) *Channel {
	return NewWithIO(handler, os.Stdin, os.Stdout)
}

// NewWithIO lets callers override the input/output streams (handy for tests).
func NewWithIO(handler *channel.Handler, in io.Reader, out io.Writer) *Channel {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Channel{
		handler:    handler,
		in:         in,
		out:        out,
		shutdownCh: make(chan struct{}),
	}
}

func (c *Channel) Present(_ context.Context, draft *model.Draft) error {
	c.mu.Lock()
	c.current = draft.ID
	c.mu.Unlock()

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(channel.PresentCaption(draft.Text))
	b.WriteString("\n")
	if draft.ImagePath != "" {
		fmt.Fprintf(&b, "[preview image] %s\n", draft.ImagePath)
	}
	fmt.Fprintf(&b, "(draft %s) type: approve | edit | deny\n", draft.ID)
	if _, err := io.WriteString(c.out, b.String()); err != nil {
		return fmt.Errorf("console write failed: %v: %w", err, model.ErrChannelUnavailable)
	}
	return nil
}

func (c *Channel) Notify(_ context.Context, text string) error {
	if _, err := fmt.Fprintln(c.out, text); err != nil {
		return fmt.Errorf("console write failed: %v: %w", err, model.ErrChannelUnavailable)
	}
	return nil
}

// Start launches the line pump. The pump ends on Shutdown, context
// cancellation or EOF on the input stream.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.started = true
	go c.pump(ctx)
	return nil
}

func (c *Channel) Shutdown() {
	c.stopOnce.Do(func() { close(c.shutdownCh) })
}

func (c *Channel) pump(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case <-c.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
		}
		c.handleLine(ctx, strings.TrimSpace(scanner.Text()))
	}
}

func (c *Channel) handleLine(ctx context.Context, line string) {
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	verb := strings.ToLower(fields[0])
	id := c.latest()
	if len(fields) > 1 {
		id = fields[1]
	}

	var reply channel.Reply
	switch verb {
	case "approve", "a":
		reply = c.handler.Approve(ctx, sessionKey, id)
	case "deny", "d":
		reply = c.handler.Deny(ctx, sessionKey, id)
	case "edit", "e":
		reply = c.handler.Edit(ctx, sessionKey, id)
	case "generate", "g":
		reply = c.handler.ManualTrigger()
	default:
		var consumed bool
		reply, consumed = c.handler.FreeText(ctx, sessionKey, line)
		if !consumed {
			c.print("Commands: approve | edit | deny | generate")
			return
		}
	}
	if reply.Text != "" {
		c.print(reply.Text)
	}
}

func (c *Channel) latest() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Channel) print(text string) {
	_, _ = fmt.Fprintln(c.out, text)
}
