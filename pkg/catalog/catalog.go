// Package catalog holds the static per-tenant storefront configuration:
// branding, copy, price list, plans, and payment destinations. The catalog
// is loaded once at process start and is read-only afterwards; tenant edits
// require a redeploy.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Payment methods understood by the storefront flow.
const (
	MethodCard   = "card"
	MethodCrypto = "crypto"
	MethodPayPal = "paypal"
)

// placeholderPrefix marks a credential that was never filled in. Tenants
// carrying one are loaded but inactive.
const placeholderPrefix = "PUT-"

// ErrNotFound is returned by Get for an unknown tenant id.
var ErrNotFound = errors.New("tenant not found")

// KnownMethod reports whether m is a supported payment method.
func KnownMethod(m string) bool {
	switch m {
	case MethodCard, MethodCrypto, MethodPayPal:
		return true
	}
	return false
}

// Plan is a purchasable tier with its own price. Order in the tenant file is
// the order buttons are rendered in.
type Plan struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	DisplayName string `json:"display_name"`
	Price       string `json:"price"`
}

// Tenant is one branded storefront sharing the common runtime.
type Tenant struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Credential     string `json:"credential"`
	SupportContact string `json:"support_contact"`

	// Prices maps payment method to a display price, used when no plan is
	// selected (direct-method tenants).
	Prices map[string]string `json:"prices"`

	Plans []Plan `json:"plans"`

	// PaymentDestinations maps a plan key (card checkout link per plan) or a
	// payment method (wallet address, PayPal tag) to its destination.
	PaymentDestinations map[string]string `json:"payment_destinations"`

	// LegacyTokens switches this tenant's buttons and parser to the flat
	// callback-token grammar kept for one pre-existing bot.
	LegacyTokens bool `json:"legacy_tokens"`

	// WebhookSecret, when set, is registered as the Telegram secret token and
	// checked on every inbound webhook call.
	WebhookSecret string `json:"webhook_secret"`
}

// Active reports whether the tenant has a usable transport credential.
func (t *Tenant) Active() bool {
	return t.Credential != "" && !strings.HasPrefix(t.Credential, placeholderPrefix)
}

// PlanByKey returns the plan with the given key.
func (t *Tenant) PlanByKey(key string) (Plan, bool) {
	for _, p := range t.Plans {
		if p.Key == key {
			return p, true
		}
	}
	return Plan{}, false
}

// DestinationFor resolves the payment destination for a plan/method pair.
// Card payments are plan-specific (checkout link per plan) with a generic
// "card" entry as fallback; crypto and PayPal destinations are per method.
func (t *Tenant) DestinationFor(planKey, method string) (string, bool) {
	if method == MethodCard {
		if planKey != "" {
			if d, ok := t.PaymentDestinations[planKey]; ok && d != "" {
				return d, true
			}
		}
		d, ok := t.PaymentDestinations[MethodCard]
		return d, ok && d != ""
	}
	d, ok := t.PaymentDestinations[method]
	return d, ok && d != ""
}

// PriceFor returns the display price for the current selection: the plan's
// own price when a plan is chosen, otherwise the tenant's per-method
// fallback price.
func (t *Tenant) PriceFor(planKey, method string) string {
	if planKey != "" {
		if p, ok := t.PlanByKey(planKey); ok && p.Price != "" {
			return p.Price
		}
	}
	return t.Prices[method]
}

// Satisfiable reports whether at least one payment destination can serve
// the plan. Plans failing this never get a button.
func (t *Tenant) Satisfiable(p Plan) bool {
	for _, m := range []string{MethodCard, MethodCrypto, MethodPayPal} {
		if _, ok := t.DestinationFor(p.Key, m); ok {
			return true
		}
	}
	return false
}

// SatisfiablePlans returns the plans that have at least one resolvable
// payment destination, in catalog order.
func (t *Tenant) SatisfiablePlans() []Plan {
	var out []Plan
	for _, p := range t.Plans {
		if t.Satisfiable(p) {
			out = append(out, p)
		}
	}
	return out
}

// Catalog is the immutable set of tenants, keyed by id.
type Catalog struct {
	tenants map[string]*Tenant
	order   []string
}

type catalogFile struct {
	Tenants []*Tenant `json:"tenants"`
}

// Load reads and validates the tenant catalog from a JSON file.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tenant catalog: %w", err)
	}
	return Parse(data, logger)
}

// Parse builds a Catalog from raw JSON, resolving credentials from the
// environment and validating internal consistency.
func Parse(data []byte, logger *slog.Logger) (*Catalog, error) {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing tenant catalog: %w", err)
	}
	if len(file.Tenants) == 0 {
		return nil, errors.New("tenant catalog is empty")
	}

	c := &Catalog{tenants: make(map[string]*Tenant, len(file.Tenants))}
	for _, t := range file.Tenants {
		if t.ID == "" {
			return nil, errors.New("tenant with empty id")
		}
		if _, dup := c.tenants[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tenant id %q", t.ID)
		}
		if err := validateTenant(t, logger); err != nil {
			return nil, fmt.Errorf("tenant %q: %w", t.ID, err)
		}
		resolveCredential(t)
		c.tenants[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	return c, nil
}

func validateTenant(t *Tenant, logger *slog.Logger) error {
	if len(t.PaymentDestinations) == 0 {
		return errors.New("no payment destinations configured")
	}
	seen := make(map[string]bool, len(t.Plans))
	for _, p := range t.Plans {
		if p.Key == "" {
			return errors.New("plan with empty key")
		}
		if seen[p.Key] {
			return fmt.Errorf("duplicate plan key %q", p.Key)
		}
		seen[p.Key] = true
		if !t.Satisfiable(p) && logger != nil {
			logger.Warn("plan has no payment destination and will not be offered",
				"tenant", t.ID,
				"plan", p.Key,
			)
		}
	}
	if len(t.SatisfiablePlans()) == 0 {
		// Direct-method tenant: needs at least one method-level destination.
		usable := false
		for _, m := range []string{MethodCard, MethodCrypto, MethodPayPal} {
			if _, ok := t.DestinationFor("", m); ok {
				usable = true
				break
			}
		}
		if !usable {
			return errors.New("no usable payment path")
		}
	}
	return nil
}

// resolveCredential fills the credential from TENANT_<ID>_TOKEN when the
// catalog file leaves it empty, so tokens stay out of checked-in config.
func resolveCredential(t *Tenant) {
	if t.Credential != "" {
		return
	}
	key := "TENANT_" + strings.ToUpper(strings.ReplaceAll(t.ID, "-", "_")) + "_TOKEN"
	t.Credential = os.Getenv(key)
}

// Get returns the tenant with the given id.
func (c *Catalog) Get(id string) (*Tenant, error) {
	t, ok := c.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// IDs returns all tenant ids in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of tenants.
func (c *Catalog) Len() int { return len(c.order) }
