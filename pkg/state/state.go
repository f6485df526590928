// Package state holds the ephemeral per-(tenant, user) conversation state:
// the selected plan, the selected payment method, and the timestamp of the
// last accepted "I've paid" claim. State lives for the process lifetime by
// default; the redis backend exists for deployments running more than one
// replica behind the webhook.
package state

import (
	"context"
	"time"
)

// ConversationState is the sticky per-user selection bag. The zero value is
// a fresh conversation.
type ConversationState struct {
	SelectedPlanKey     string    `json:"selected_plan_key,omitempty"`
	SelectedPlanDisplay string    `json:"selected_plan_display,omitempty"`
	SelectedMethod      string    `json:"selected_method,omitempty"`
	LastPaidClaim       time.Time `json:"last_paid_claim,omitzero"`
}

// Store is the conversation state contract. Keys are independent: no
// operation on one (tenant, user) pair may affect another.
type Store interface {
	// Get returns the state for a (tenant, user) pair, zero value if absent.
	Get(ctx context.Context, tenantID string, userID int64) (ConversationState, error)

	// Put replaces the state for a (tenant, user) pair.
	Put(ctx context.Context, tenantID string, userID int64, st ConversationState) error

	// TryClaimPaid atomically checks and records a payment claim. It returns
	// true when the claim is accepted, false when a previous claim from the
	// same user is still inside the debounce window. At most one claim per
	// (tenant, user) is accepted per window, however many arrive.
	TryClaimPaid(ctx context.Context, tenantID string, userID int64, now time.Time, window time.Duration) (bool, error)
}
