// Package telegram delivers drafts to a Telegram chat for review. Each draft
// is sent as a photo message with inline Approve / Edit / Deny buttons; the
// update pump turns button presses and replacement text into decisions.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/channel"
)

const greeting = "🐧 Mechapengu Approval Bot is ready!\nI'll send you tweets for approval before posting them."

// Config identifies the bot and the single reviewer chat it talks to.
type Config struct {
	Token  string
	ChatID int64
}

// Channel reviews drafts over a Telegram bot conversation.
type Channel struct {
	bot     *tgbotapi.BotAPI
	handler *channel.Handler
	chatID  int64

	mu         sync.Mutex
	started    bool
	shutdownCh chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// Option customises the channel.
type Option func(*options)

type options struct {
	endpoint string
}

// WithEndpoint overrides the bot API endpoint template, for local bot API
// servers or tests. The template takes the token and the method name.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// New connects the bot and verifies the token against the getMe endpoint.
func New(cfg Config, handler *channel.Handler, opts ...Option) (*Channel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token was empty")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id was empty")
	}
	o := &options{endpoint: tgbotapi.APIEndpoint}
	for _, opt := range opts {
		opt(o)
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, o.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram bot connected")
	return &Channel{
		bot:        bot,
		handler:    handler,
		chatID:     cfg.ChatID,
		shutdownCh: make(chan struct{}),
	}, nil
}

func (c *Channel) Present(_ context.Context, draft *model.Draft) error {
	markup := actionKeyboard(draft.ID)
	var msg tgbotapi.Chattable
	if draft.ImagePath != "" {
		photo := tgbotapi.NewPhoto(c.chatID, tgbotapi.FilePath(draft.ImagePath))
		photo.Caption = channel.PresentCaption(draft.Text)
		photo.ReplyMarkup = markup
		msg = photo
	} else {
		text := tgbotapi.NewMessage(c.chatID, channel.PresentCaption(draft.Text))
		text.ReplyMarkup = markup
		msg = text
	}
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send draft %v for review: %v: %w", draft.ID, err, model.ErrChannelUnavailable)
	}
	return nil
}

func (c *Channel) Notify(_ context.Context, text string) error {
	if _, err := c.bot.Send(tgbotapi.NewMessage(c.chatID, text)); err != nil {
		return fmt.Errorf("telegram notice failed: %v: %w", err, model.ErrChannelUnavailable)
	}
	return nil
}

// Start launches the long-polling update pump.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.started = true
	c.wg.Add(1)
	go c.pump(ctx)
	return nil
}

func (c *Channel) Shutdown() {
	c.stopOnce.Do(func() {
		close(c.shutdownCh)
		c.bot.StopReceivingUpdates()
	})
	c.wg.Wait()
}

func (c *Channel) pump(ctx context.Context) {
	defer c.wg.Done()
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := c.bot.GetUpdatesChan(cfg)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdownCh:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.handleUpdate(ctx, update)
		}
	}
}

func (c *Channel) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	}
}

func (c *Channel) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Acknowledge first so the button stops spinning even when the draft
	// turns out to be gone.
	if _, err := c.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Debug().Err(err).Msg("callback ack failed")
	}
	if query.Message == nil || !c.allowed(query.Message.Chat.ID) {
		return
	}
	action, draftID := parseCallback(query.Data)
	if draftID == "" {
		return
	}
	session := sessionFor(query.Message.Chat.ID)
	var reply channel.Reply
	switch action {
	case "approve":
		reply = c.handler.Approve(ctx, session, draftID)
	case "deny":
		reply = c.handler.Deny(ctx, session, draftID)
	case "edit":
		reply = c.handler.Edit(ctx, session, draftID)
	default:
		log.Debug().Str("data", query.Data).Msg("unknown callback action")
		return
	}
	c.editPresented(query.Message, reply.Text)
}

func (c *Channel) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !c.allowed(msg.Chat.ID) {
		return
	}
	if msg.IsCommand() {
		c.handleCommand(ctx, msg)
		return
	}
	reply, consumed := c.handler.FreeText(ctx, sessionFor(msg.Chat.ID), msg.Text)
	if !consumed {
		return
	}
	c.send(msg.Chat.ID, reply.Text)
}

func (c *Channel) handleCommand(_ context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		c.send(msg.Chat.ID, greeting)
	case "generate":
		c.send(msg.Chat.ID, c.handler.ManualTrigger().Text)
	}
}

// editPresented rewrites the review message in place so the action keyboard
// disappears once an action lands. Photo messages carry the draft in the
// caption, plain fallbacks in the text body.
func (c *Channel) editPresented(msg *tgbotapi.Message, text string) {
	if text == "" {
		return
	}
	var edit tgbotapi.Chattable
	if msg.Caption != "" {
		edit = tgbotapi.NewEditMessageCaption(msg.Chat.ID, msg.MessageID, text)
	} else {
		edit = tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text)
	}
	if _, err := c.bot.Send(edit); err != nil {
		log.Warn().Err(err).Msg("failed to update review message")
	}
}

func (c *Channel) send(chatID int64, text string) {
	if text == "" {
		return
	}
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Warn().Err(err).Msg("telegram send failed")
	}
}

func (c *Channel) allowed(chatID int64) bool {
	if chatID == c.chatID {
		return true
	}
	log.Debug().Int64("chat", chatID).Msg("ignoring update from unknown chat")
	return false
}

func sessionFor(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

func actionKeyboard(draftID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", "approve_"+draftID),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", "edit_"+draftID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Deny", "deny_"+draftID),
		),
	)
}

// parseCallback splits button data such as "approve_1234" into the action
// and the draft id. Only the first underscore separates the two; draft ids
// never contain one but future actions might.
func parseCallback(data string) (action, draftID string) {
	idx := strings.Index(data, "_")
	if idx < 0 {
		return data, ""
	}
	return data[:idx], data[idx+1:]
}
