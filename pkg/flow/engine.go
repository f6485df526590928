// Package flow is the per-tenant conversational state machine: it parses
// callback tokens, advances conversation state, renders the next screen,
// and emits operator notifications. It never talks to a chat platform
// directly; the transport adapter executes the Reply it returns.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wisbric/sellowl/pkg/catalog"
	"github.com/wisbric/sellowl/pkg/notify"
	"github.com/wisbric/sellowl/pkg/state"
)

// DefaultDebounceWindow is the minimum interval between accepted "I've
// paid" claims from the same user.
const DefaultDebounceWindow = 60 * time.Second

// Event is one inbound chat interaction, already stripped of transport
// detail.
type Event struct {
	UserID     int64
	ChatID     int64
	MessageID  int    // message carrying the tapped button, 0 for commands
	CallbackID string // transport ack handle, empty for commands
	Token      string // raw callback token, empty for commands
	Command    string // bot command without slash ("start")
}

// Reply tells the transport adapter what to do. Zero value means "nothing".
type Reply struct {
	Screen *Screen // next screen to show, nil for toast-only replies
	Edit   bool    // edit the originating message instead of sending new
	Toast  string  // short callback acknowledgement shown to the user
	Plain  string  // extra plain-text message (copy action payload)
}

// Metrics holds the engine's Prometheus counters. Fields may be nil.
type Metrics struct {
	ActionsTotal   *prometheus.CounterVec // {tenant, action}
	DebouncedTotal *prometheus.CounterVec // {tenant}
}

func (m *Metrics) action(tenant, action string) {
	if m != nil && m.ActionsTotal != nil {
		m.ActionsTotal.WithLabelValues(tenant, action).Inc()
	}
}

func (m *Metrics) debounced(tenant string) {
	if m != nil && m.DebouncedTotal != nil {
		m.DebouncedTotal.WithLabelValues(tenant).Inc()
	}
}

// Engine routes parsed actions through the state machine. One engine serves
// all tenants; tenant identity travels with every call.
type Engine struct {
	store    state.Store
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
	debounce time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDebounceWindow overrides the paid-claim debounce window.
func WithDebounceWindow(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// NewEngine creates an Engine. metrics may be nil.
func NewEngine(store state.Store, notifier notify.Notifier, logger *slog.Logger, metrics *Metrics, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		debounce: DefaultDebounceWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle processes one inbound event for a tenant and returns the reply to
// execute. It never fails toward the user: every internal error degrades to
// a known-good screen.
func (e *Engine) Handle(ctx context.Context, t *catalog.Tenant, ev Event) Reply {
	// Plain messages: only /start is meaningful, everything else is ignored.
	if ev.Token == "" {
		if ev.Command == "start" {
			e.metrics.action(t.ID, "start")
			return e.startReply(t, ev)
		}
		return Reply{}
	}

	act := ParseToken(t, ev.Token)
	st := e.loadState(ctx, t, ev)

	switch act.Kind {
	case ActionChoosePlan:
		return e.handleChoosePlan(ctx, t, ev, st, act.PlanKey)
	case ActionChooseMethod:
		return e.handleChooseMethod(ctx, t, ev, st, act)
	case ActionCopy:
		return e.handleCopy(ctx, t, ev, st, act.Method)
	case ActionClaimPaid:
		return e.handleClaimPaid(ctx, t, ev, st, act.Method)
	case ActionBack:
		e.metrics.action(t.ID, "back")
		if act.Target == "plan" && st.SelectedPlanKey != "" {
			if p, ok := t.PlanByKey(st.SelectedPlanKey); ok {
				return e.screenReply(ev, PlanChosenScreen(t, p))
			}
		}
		return e.startReply(t, ev)
	case ActionSupport:
		e.metrics.action(t.ID, "support")
		return e.screenReply(ev, SupportScreen(t))
	case ActionFAQ:
		e.metrics.action(t.ID, "faq")
		return e.screenReply(ev, FAQScreen(t))
	default:
		e.metrics.action(t.ID, "unknown")
		return e.startReply(t, ev)
	}
}

func (e *Engine) handleChoosePlan(ctx context.Context, t *catalog.Tenant, ev Event, st state.ConversationState, planKey string) Reply {
	p, ok := t.PlanByKey(planKey)
	if !ok {
		e.logger.Warn("callback references unknown plan",
			"tenant", t.ID,
			"plan", planKey,
		)
		return e.startReply(t, ev)
	}
	e.metrics.action(t.ID, "choose_plan")

	st.SelectedPlanKey = p.Key
	st.SelectedPlanDisplay = p.DisplayName
	if st.SelectedPlanDisplay == "" {
		st.SelectedPlanDisplay = p.Label
	}
	e.saveState(ctx, t, ev, st)

	e.notify(ctx, t, ev, st, notify.KindPlanSelected, "")
	return e.screenReply(ev, PlanChosenScreen(t, p))
}

func (e *Engine) handleChooseMethod(ctx context.Context, t *catalog.Tenant, ev Event, st state.ConversationState, act ParsedAction) Reply {
	method := act.Method
	if !catalog.KnownMethod(method) {
		return e.startReply(t, ev)
	}
	e.metrics.action(t.ID, "choose_method")

	// Legacy payment tokens carry the plan inline; adopt it when valid.
	if act.PlanKey != "" {
		if p, ok := t.PlanByKey(act.PlanKey); ok {
			st.SelectedPlanKey = p.Key
			st.SelectedPlanDisplay = p.DisplayName
			if st.SelectedPlanDisplay == "" {
				st.SelectedPlanDisplay = p.Label
			}
		}
	}

	dest, ok := t.DestinationFor(st.SelectedPlanKey, method)
	if !ok {
		// No destination for this plan/method pair: recoverable notice, no
		// broken button, no state change.
		return Reply{Toast: "This payment method isn't available yet — please pick another."}
	}

	st.SelectedMethod = method
	e.saveState(ctx, t, ev, st)

	e.notify(ctx, t, ev, st, notify.KindMethodEntered, method)

	if method == catalog.MethodCard {
		return e.screenReply(ev, CardScreen(t, st, dest))
	}
	return e.screenReply(ev, MethodScreen(t, st, method, dest))
}

// handleCopy re-sends the raw payment destination as plain text so the user
// can copy it. A side-effecting read: state is untouched.
func (e *Engine) handleCopy(ctx context.Context, t *catalog.Tenant, ev Event, st state.ConversationState, method string) Reply {
	if method == "" {
		method = st.SelectedMethod
	}
	dest, ok := t.DestinationFor(st.SelectedPlanKey, method)
	if !ok {
		return Reply{Toast: "Nothing to copy for this payment method."}
	}
	e.metrics.action(t.ID, "copy")

	e.notify(ctx, t, ev, st, notify.KindCopyPressed, method)
	return Reply{Plain: dest, Toast: "Payment details sent below 👇"}
}

func (e *Engine) handleClaimPaid(ctx context.Context, t *catalog.Tenant, ev Event, st state.ConversationState, method string) Reply {
	if method == "" {
		method = st.SelectedMethod
	}
	if method == "" {
		method = catalog.MethodCard
	}
	e.metrics.action(t.ID, "claim_paid")

	now := e.now()
	accepted, err := e.store.TryClaimPaid(ctx, t.ID, ev.UserID, now, e.debounce)
	if err != nil {
		// Same posture as a failed dedup lookup: better a duplicate operator
		// ping than a lost payment claim.
		e.logger.Warn("paid-claim debounce check failed, accepting claim",
			"tenant", t.ID,
			"user", ev.UserID,
			"error", err,
		)
		accepted = true
	}
	if !accepted {
		e.metrics.debounced(t.ID)
		return Reply{Toast: "Already received — thank you!"}
	}

	ev2 := notify.Event{
		Kind:        notify.KindPaymentClaimed,
		Tenant:      t.ID,
		TenantTitle: t.Title,
		UserID:      ev.UserID,
		PlanKey:     st.SelectedPlanKey,
		PlanDisplay: st.SelectedPlanDisplay,
		Method:      method,
		At:          now,
	}
	if err := e.notifier.Notify(ctx, ev2); err != nil {
		e.logger.Warn("payment notification failed",
			"tenant", t.ID,
			"user", ev.UserID,
			"error", err,
		)
	}

	return e.screenReply(ev, PaidScreen(t, method))
}

// loadState fetches the user's conversation state, degrading to a fresh
// conversation when the store misbehaves.
func (e *Engine) loadState(ctx context.Context, t *catalog.Tenant, ev Event) state.ConversationState {
	st, err := e.store.Get(ctx, t.ID, ev.UserID)
	if err != nil {
		e.logger.Warn("loading conversation state failed, starting fresh",
			"tenant", t.ID,
			"user", ev.UserID,
			"error", err,
		)
		return state.ConversationState{}
	}
	return st
}

func (e *Engine) saveState(ctx context.Context, t *catalog.Tenant, ev Event, st state.ConversationState) {
	if err := e.store.Put(ctx, t.ID, ev.UserID, st); err != nil {
		e.logger.Warn("saving conversation state failed",
			"tenant", t.ID,
			"user", ev.UserID,
			"error", err,
		)
	}
}

func (e *Engine) notify(ctx context.Context, t *catalog.Tenant, ev Event, st state.ConversationState, kind notify.Kind, method string) {
	err := e.notifier.Notify(ctx, notify.Event{
		Kind:        kind,
		Tenant:      t.ID,
		TenantTitle: t.Title,
		UserID:      ev.UserID,
		PlanKey:     st.SelectedPlanKey,
		PlanDisplay: st.SelectedPlanDisplay,
		Method:      method,
		At:          e.now(),
	})
	if err != nil {
		e.logger.Warn("operator notification failed",
			"tenant", t.ID,
			"kind", kind,
			"error", err,
		)
	}
}

// startReply renders the start screen, editing in place when the event came
// from a button and sending fresh for /start.
func (e *Engine) startReply(t *catalog.Tenant, ev Event) Reply {
	s := StartScreen(t)
	return Reply{Screen: &s, Edit: ev.CallbackID != ""}
}

func (e *Engine) screenReply(ev Event, s Screen) Reply {
	return Reply{Screen: &s, Edit: ev.CallbackID != ""}
}
