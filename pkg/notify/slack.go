package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"
)

// slackTimeout bounds each outbound Slack call.
const slackTimeout = 5 * time.Second

// Slack posts operator notifications to a Slack channel. If botToken is
// empty the notifier is a noop (logging only).
type Slack struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewSlack creates a Slack notifier.
func NewSlack(botToken, channel string, logger *slog.Logger) *Slack {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Slack{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

func (n *Slack) Name() string { return "slack" }

// IsEnabled returns true if the notifier has a valid Slack client.
func (n *Slack) IsEnabled() bool { return n.client != nil && n.channel != "" }

func (n *Slack) Notify(ctx context.Context, ev Event) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping",
			"kind", ev.Kind,
			"tenant", ev.Tenant,
		)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, slackTimeout)
	defer cancel()

	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		goslack.MsgOptionText(Format(ev), false))
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	return nil
}
