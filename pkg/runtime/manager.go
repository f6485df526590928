// Package runtime starts one bot per tenant and dispatches inbound webhook
// updates to the conversational flow. Tenant startup is isolated: one bad
// credential, client, or webhook registration never blocks the others.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wisbric/sellowl/pkg/catalog"
	"github.com/wisbric/sellowl/pkg/flow"
	"github.com/wisbric/sellowl/pkg/telegram"
)

// Status describes the outcome of a tenant's startup sequence.
type Status string

const (
	StatusOK                  Status = "ok"
	StatusSkippedNoCredential Status = "skipped-no-credential"
	StatusInitError           Status = "init-error"
	StatusWebhookError        Status = "webhook-error"
	StatusFatalError          Status = "fatal-error"
)

// Record is the write-once startup result for one tenant.
type Record struct {
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ErrUnknownTenant is returned for updates addressed to a tenant that is
// not loaded or not active.
var ErrUnknownTenant = errors.New("unknown or inactive tenant")

// Factory builds a transport client for a tenant credential. Injected so
// tests can run without the Telegram API.
type Factory func(token string) (telegram.Transport, error)

// Metrics holds the manager's Prometheus counters. Fields may be nil.
type Metrics struct {
	UpdatesTotal *prometheus.CounterVec // {tenant}
}

func (m *Metrics) update(tenant string) {
	if m != nil && m.UpdatesTotal != nil {
		m.UpdatesTotal.WithLabelValues(tenant).Inc()
	}
}

// Manager owns the per-tenant transports and startup records.
type Manager struct {
	catalog *catalog.Catalog
	engine  *flow.Engine
	factory Factory
	baseURL string
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.RWMutex
	records map[string]Record
	active  map[string]telegram.Transport
}

// NewManager creates a Manager. baseURL is the external address webhooks
// are registered under; when empty, registration is skipped and tenants are
// recorded with webhook-error for a later manual retry.
func NewManager(cat *catalog.Catalog, engine *flow.Engine, factory Factory, baseURL string, logger *slog.Logger, metrics *Metrics) *Manager {
	return &Manager{
		catalog: cat,
		engine:  engine,
		factory: factory,
		baseURL: baseURL,
		logger:  logger,
		metrics: metrics,
		records: make(map[string]Record),
		active:  make(map[string]telegram.Transport),
	}
}

// Start runs every tenant's startup sequence and logs a summary. It always
// returns nil: individual failures live in the records, and a process with
// zero live tenants still serves its status endpoints.
func (m *Manager) Start(ctx context.Context) error {
	var live int
	for _, id := range m.catalog.IDs() {
		t, err := m.catalog.Get(id)
		if err != nil {
			continue
		}
		rec := m.startTenant(ctx, t)

		m.mu.Lock()
		m.records[id] = rec
		m.mu.Unlock()

		if rec.Status == StatusOK || rec.Status == StatusWebhookError {
			live++
		}
		m.logger.Info("tenant startup",
			"tenant", id,
			"status", string(rec.Status),
			"detail", rec.Detail,
		)
	}
	m.logger.Info("tenant startup complete",
		"total", m.catalog.Len(),
		"live", live,
	)
	return nil
}

// startTenant runs one tenant's sequence: credential check, client
// construction, webhook registration. A panic anywhere becomes a
// fatal-error record instead of taking the process down.
func (m *Manager) startTenant(ctx context.Context, t *catalog.Tenant) (rec Record) {
	defer func() {
		if r := recover(); r != nil {
			rec = Record{Status: StatusFatalError, Detail: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if !t.Active() {
		return Record{Status: StatusSkippedNoCredential, Detail: "credential missing or placeholder"}
	}

	tr, err := m.factory(t.Credential)
	if err != nil {
		return Record{Status: StatusInitError, Detail: err.Error()}
	}

	// The transport goes live before webhook registration: a tenant whose
	// registration fails can still process updates and be re-registered by
	// hand later.
	m.mu.Lock()
	m.active[t.ID] = tr
	m.mu.Unlock()

	if m.baseURL == "" {
		return Record{Status: StatusWebhookError, Detail: "base URL not configured"}
	}
	url := fmt.Sprintf("%s/webhook/%s", m.baseURL, t.ID)
	if err := tr.RegisterWebhook(ctx, url, t.WebhookSecret); err != nil {
		return Record{Status: StatusWebhookError, Detail: err.Error()}
	}

	return Record{Status: StatusOK}
}

// Records returns a copy of the startup records.
func (m *Manager) Records() map[string]Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

// ActiveIDs returns the live tenant ids in catalog order.
func (m *Manager) ActiveIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, id := range m.catalog.IDs() {
		if _, ok := m.active[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// WebhookSecret reports whether the tenant accepts webhook traffic and, if
// so, the secret token to verify. ok is false for unknown or inactive
// tenants.
func (m *Manager) WebhookSecret(tenantID string) (secret string, ok bool) {
	m.mu.RLock()
	_, live := m.active[tenantID]
	m.mu.RUnlock()
	if !live {
		return "", false
	}
	t, err := m.catalog.Get(tenantID)
	if err != nil {
		return "", false
	}
	return t.WebhookSecret, true
}

func (m *Manager) transport(tenantID string) (telegram.Transport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tr, ok := m.active[tenantID]
	return tr, ok
}

// HandleUpdate processes one raw webhook update for a tenant. Errors are
// per-event: the caller logs them and answers with a non-retry-inducing
// response. A panic in flow or transport code is contained here.
func (m *Manager) HandleUpdate(ctx context.Context, tenantID string, body []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processing update: panic: %v", r)
		}
	}()

	tr, ok := m.transport(tenantID)
	if !ok {
		return ErrUnknownTenant
	}
	t, cerr := m.catalog.Get(tenantID)
	if cerr != nil {
		return ErrUnknownTenant
	}
	m.metrics.update(tenantID)

	var upd tgbotapi.Update
	if uerr := json.Unmarshal(body, &upd); uerr != nil {
		return fmt.Errorf("decoding update: %w", uerr)
	}

	ev, ok := telegram.EventFromUpdate(upd)
	if !ok {
		// Update type the storefront does not handle; acknowledged silently.
		return nil
	}

	reply := m.engine.Handle(ctx, t, ev)
	return m.execute(ctx, tr, tenantID, ev, reply)
}

// execute performs the transport side effects for a reply: callback ack
// first, then the screen, then any plain-text payload.
func (m *Manager) execute(ctx context.Context, tr telegram.Transport, tenantID string, ev flow.Event, reply flow.Reply) error {
	if ev.CallbackID != "" {
		if err := tr.AnswerCallback(ctx, ev.CallbackID, reply.Toast); err != nil {
			m.logger.Warn("answering callback failed",
				"tenant", tenantID,
				"error", err,
			)
		}
	}

	if reply.Screen != nil {
		var err error
		if reply.Edit && ev.MessageID != 0 {
			err = tr.EditScreen(ctx, ev.ChatID, ev.MessageID, *reply.Screen)
		} else {
			err = tr.SendScreen(ctx, ev.ChatID, *reply.Screen)
		}
		if err != nil {
			return fmt.Errorf("rendering screen: %w", err)
		}
	}

	if reply.Plain != "" {
		if err := tr.SendPlain(ctx, ev.ChatID, reply.Plain); err != nil {
			return fmt.Errorf("sending payment details: %w", err)
		}
	}
	return nil
}
