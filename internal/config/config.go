package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all sellowl configuration, read from the environment.
type Config struct {
	// Server
	Host string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"APP_PORT" envDefault:"8080"`

	// BaseURL is the externally reachable address tenant webhooks are
	// registered under, e.g. https://bots.example.com. When empty, webhook
	// registration is skipped and affected tenants report webhook-error.
	BaseURL string `env:"BASE_URL"`

	// TenantsFile is the JSON tenant catalog path.
	TenantsFile string `env:"TENANTS_FILE" envDefault:"config/tenants.json"`

	// Redis (optional). When set, conversation state and the paid-claim
	// debounce move to redis so several replicas can share them.
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// PaidDebounceWindow is the minimum interval between accepted "I've
	// paid" claims from the same user.
	PaidDebounceWindow time.Duration `env:"PAID_DEBOUNCE_WINDOW" envDefault:"60s"`

	// TransportTimeout bounds every outbound Telegram API call.
	TransportTimeout time.Duration `env:"TRANSPORT_TIMEOUT" envDefault:"5s"`

	// Operator notifications: a dedicated bot posting into a fixed chat,
	// and/or a Slack channel. Both optional.
	OperatorBotToken  string `env:"OPERATOR_BOT_TOKEN"`
	OperatorChatID    int64  `env:"OPERATOR_CHAT_ID"`
	SlackBotToken     string `env:"SLACK_BOT_TOKEN"`
	SlackAlertChannel string `env:"SLACK_ALERT_CHANNEL"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
