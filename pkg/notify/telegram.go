package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends operator notifications to a fixed chat through a dedicated
// bot. If token or chat id are missing the notifier is a noop, logging only.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewTelegram creates a Telegram operator notifier. An empty token or zero
// chat id produces a disabled (logging-only) notifier rather than an error.
// timeout bounds every outbound API call.
func NewTelegram(token string, chatID int64, timeout time.Duration, logger *slog.Logger) (*Telegram, error) {
	n := &Telegram{chatID: chatID, logger: logger}
	if token == "" || chatID == 0 {
		return n, nil
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("creating operator bot client: %w", err)
	}
	n.api = api
	return n, nil
}

func (n *Telegram) Name() string { return "telegram" }

// IsEnabled returns true when the notifier has a working client.
func (n *Telegram) IsEnabled() bool { return n.api != nil && n.chatID != 0 }

// Notify sends the formatted event text to the operator chat. The underlying
// HTTP client carries the timeout; ctx is accepted for interface symmetry.
func (n *Telegram) Notify(_ context.Context, ev Event) error {
	if !n.IsEnabled() {
		n.logger.Debug("telegram notifier disabled, skipping",
			"kind", ev.Kind,
			"tenant", ev.Tenant,
		)
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, Format(ev))
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("sending operator message: %w", err)
	}
	return nil
}
