// Package notify emits best-effort operator alerts for storefront events.
// Delivery is fire-and-forget: implementations return errors so callers can
// log and count them, but nothing retries and nothing propagates to the
// user-facing flow.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Kind identifies what the user just did.
type Kind string

const (
	KindPlanSelected   Kind = "plan_selected"
	KindMethodEntered  Kind = "method_entered"
	KindPaymentClaimed Kind = "payment_claimed"
	KindCopyPressed    Kind = "copy_pressed"
)

// Event is one operator notification. It is never stored.
type Event struct {
	Kind        Kind
	Tenant      string
	TenantTitle string
	UserID      int64
	PlanKey     string
	PlanDisplay string
	Method      string
	At          time.Time
}

// Notifier delivers operator notifications.
type Notifier interface {
	// Name identifies the delivery channel ("telegram", "slack").
	Name() string

	// Notify sends one event. Implementations bound the call with their own
	// timeout so a slow channel cannot stall event processing.
	Notify(ctx context.Context, ev Event) error
}

// Format renders the operator-facing text for an event.
func Format(ev Event) string {
	plan := ev.PlanDisplay
	if plan == "" {
		plan = ev.PlanKey
	}
	if plan == "" {
		plan = "none"
	}

	switch ev.Kind {
	case KindPlanSelected:
		return fmt.Sprintf("🛒 [%s] user %d selected plan %s", ev.Tenant, ev.UserID, plan)
	case KindMethodEntered:
		return fmt.Sprintf("💳 [%s] user %d entered %s payment (plan: %s)", ev.Tenant, ev.UserID, ev.Method, plan)
	case KindPaymentClaimed:
		return fmt.Sprintf("✅ [%s] PAYMENT CLAIMED by user %d\nplan: %s\nmethod: %s\nat: %s",
			ev.Tenant, ev.UserID, plan, ev.Method, ev.At.UTC().Format(time.RFC3339))
	case KindCopyPressed:
		return fmt.Sprintf("📋 [%s] user %d copied %s payment details", ev.Tenant, ev.UserID, ev.Method)
	default:
		return fmt.Sprintf("[%s] user %d: %s", ev.Tenant, ev.UserID, ev.Kind)
	}
}

// Noop discards all events. Used when no operator channel is configured.
type Noop struct{}

func (Noop) Name() string                        { return "noop" }
func (Noop) Notify(context.Context, Event) error { return nil }
