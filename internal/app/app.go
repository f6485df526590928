// Package app wires configuration, catalog, state store, notifiers, the
// tenant runtime, and the HTTP server into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wisbric/sellowl/internal/config"
	"github.com/wisbric/sellowl/internal/httpserver"
	"github.com/wisbric/sellowl/internal/platform"
	"github.com/wisbric/sellowl/internal/telemetry"
	"github.com/wisbric/sellowl/pkg/catalog"
	"github.com/wisbric/sellowl/pkg/flow"
	"github.com/wisbric/sellowl/pkg/notify"
	"github.com/wisbric/sellowl/pkg/runtime"
	"github.com/wisbric/sellowl/pkg/state"
	"github.com/wisbric/sellowl/pkg/telegram"
)

// Run is the main application entry point. It loads the tenant catalog,
// builds the flow engine and per-tenant transports, and serves the webhook
// ingress until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting sellowl",
		"listen", cfg.ListenAddr(),
		"tenants_file", cfg.TenantsFile,
	)

	cat, err := catalog.Load(cfg.TenantsFile, logger)
	if err != nil {
		return fmt.Errorf("loading tenant catalog: %w", err)
	}
	logger.Info("tenant catalog loaded", "tenants", cat.Len())

	// Conversation state: in-memory by default, redis when configured so
	// replicas share the paid-claim debounce.
	var store state.Store = state.NewMemoryStore()
	if cfg.RedisURL != "" {
		rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("closing redis", "error", err)
			}
		}()
		store = state.NewRedisStore(rdb, logger)
		logger.Info("conversation state backed by redis")
	}

	metricsReg := telemetry.NewMetricsRegistry()

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}

	engine := flow.NewEngine(store, notifier, logger,
		&flow.Metrics{
			ActionsTotal:   telemetry.CallbackActionsTotal,
			DebouncedTotal: telemetry.PaidClaimsDebouncedTotal,
		},
		flow.WithDebounceWindow(cfg.PaidDebounceWindow),
	)

	factory := func(token string) (telegram.Transport, error) {
		return telegram.NewClient(token, cfg.TransportTimeout, logger)
	}
	manager := runtime.NewManager(cat, engine, factory, cfg.BaseURL, logger,
		&runtime.Metrics{UpdatesTotal: telemetry.UpdatesReceivedTotal})

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("starting tenants: %w", err)
	}

	srv := httpserver.NewServer(cfg, logger, manager, metricsReg)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("webhook server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildNotifier assembles the operator notification fanout from whatever
// channels are configured. No channels means a noop notifier: the flow runs
// identically, alerts just go nowhere.
func buildNotifier(cfg *config.Config, logger *slog.Logger) (notify.Notifier, error) {
	metrics := &notify.Metrics{
		SentTotal:   telemetry.NotificationsSentTotal,
		FailedTotal: telemetry.NotificationsFailedTotal,
	}

	var targets []notify.Notifier

	tg, err := notify.NewTelegram(cfg.OperatorBotToken, cfg.OperatorChatID, cfg.TransportTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram notifier: %w", err)
	}
	if tg.IsEnabled() {
		targets = append(targets, tg)
		logger.Info("telegram operator notifications enabled", "chat", cfg.OperatorChatID)
	}

	sl := notify.NewSlack(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)
	if sl.IsEnabled() {
		targets = append(targets, sl)
		logger.Info("slack operator notifications enabled", "channel", cfg.SlackAlertChannel)
	}

	if len(targets) == 0 {
		logger.Warn("no operator notification channel configured")
		return notify.Noop{}, nil
	}
	return notify.NewFanout(logger, metrics, targets...), nil
}
