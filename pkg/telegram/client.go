// Package telegram adapts the Telegram Bot API to the flow and runtime
// packages: it renders screens as inline keyboards, executes replies, and
// registers per-tenant webhooks.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wisbric/sellowl/pkg/flow"
)

// Transport is what the tenant runtime needs from a chat client. The real
// implementation wraps tgbotapi; tests substitute a fake.
type Transport interface {
	// SendScreen posts a screen as a new message.
	SendScreen(ctx context.Context, chatID int64, s flow.Screen) error

	// EditScreen replaces the text and keyboard of an existing message.
	EditScreen(ctx context.Context, chatID int64, messageID int, s flow.Screen) error

	// SendPlain posts raw text with no keyboard and no formatting.
	SendPlain(ctx context.Context, chatID int64, text string) error

	// AnswerCallback acknowledges a button press, optionally with a toast.
	AnswerCallback(ctx context.Context, callbackID, text string) error

	// RegisterWebhook points the bot's webhook at url, restricted to message
	// and callback events, dropping anything queued before registration.
	RegisterWebhook(ctx context.Context, url, secret string) error
}

// Client is the tgbotapi-backed Transport. The ctx parameters exist for the
// Transport contract; the underlying HTTP client carries the timeout because
// tgbotapi calls are not context-aware.
type Client struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewClient constructs a bot client for one tenant credential. This calls
// getMe, so it fails fast on a bad token.
func NewClient(token string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("creating bot client: %w", err)
	}
	return &Client{api: api, logger: logger}, nil
}

// Username returns the bot's username, for startup logs.
func (c *Client) Username() string { return c.api.Self.UserName }

func (c *Client) SendScreen(_ context.Context, chatID int64, s flow.Screen) error {
	msg := tgbotapi.NewMessage(chatID, s.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb, ok := keyboard(s); ok {
		msg.ReplyMarkup = kb
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("sending screen: %w", err)
	}
	return nil
}

func (c *Client) EditScreen(ctx context.Context, chatID int64, messageID int, s flow.Screen) error {
	var err error
	if kb, ok := keyboard(s); ok {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, s.Text, kb)
		edit.ParseMode = tgbotapi.ModeMarkdown
		_, err = c.api.Send(edit)
	} else {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, s.Text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		_, err = c.api.Send(edit)
	}
	if err != nil {
		// Editing fails when the message is too old or unchanged; fall back
		// to a fresh message so the user is never stuck.
		c.logger.Debug("edit failed, sending new message", "chat", chatID, "error", err)
		return c.SendScreen(ctx, chatID, s)
	}
	return nil
}

func (c *Client) SendPlain(_ context.Context, chatID int64, text string) error {
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

func (c *Client) AnswerCallback(_ context.Context, callbackID, text string) error {
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answering callback: %w", err)
	}
	return nil
}

// RegisterWebhook goes through MakeRequest because the library's
// WebhookConfig predates the secret_token parameter.
func (c *Client) RegisterWebhook(_ context.Context, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddBool("drop_pending_updates", true)
	params.AddNonEmpty("secret_token", secret)
	if err := params.AddInterface("allowed_updates", []string{"message", "callback_query"}); err != nil {
		return fmt.Errorf("encoding allowed_updates: %w", err)
	}

	resp, err := c.api.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("setting webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("setting webhook: %s", resp.Description)
	}
	return nil
}

// keyboard converts a screen's button rows to an inline keyboard. ok is
// false for screens without buttons.
func keyboard(s flow.Screen) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(s.Rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(s.Rows))
	for _, r := range s.Rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			if b.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Callback))
			}
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
