package flow

import (
	"strings"

	"github.com/wisbric/sellowl/pkg/catalog"
)

// ActionKind enumerates the state transitions a callback token can ask for.
type ActionKind int

const (
	ActionStart ActionKind = iota
	ActionChoosePlan
	ActionChooseMethod
	ActionCopy
	ActionClaimPaid
	ActionBack
	ActionSupport
	ActionFAQ
)

// ParsedAction is the grammar-agnostic result of parsing a callback token.
// Both token grammars normalize into it before any transition logic runs.
type ParsedAction struct {
	Kind    ActionKind
	PlanKey string // ChoosePlan; ChooseMethod when the legacy token carries a plan
	Method  string // ChooseMethod, Copy, ClaimPaid
	Target  string // Back: "plan" returns to the plan screen instead of start
}

// ParseToken turns a raw callback token into a ParsedAction using the
// tenant's grammar. Parsing is total: anything malformed or unrecognized
// becomes ActionStart so the user always lands on a known-good screen.
func ParseToken(t *catalog.Tenant, token string) ParsedAction {
	if t.LegacyTokens {
		return parseLegacyToken(token)
	}
	return parseGenericToken(t.ID, token)
}

// parseGenericToken handles the colon-delimited "{tenant}:{action}[:{arg}]"
// grammar. A token whose tenant segment does not match the webhook's tenant
// is rejected outright.
func parseGenericToken(tenantID, token string) ParsedAction {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) < 2 || parts[0] != tenantID {
		return ParsedAction{Kind: ActionStart}
	}

	action := parts[1]
	var arg string
	if len(parts) == 3 {
		arg = parts[2]
	}

	switch action {
	case "plan", "choose_plan":
		if arg == "" {
			return ParsedAction{Kind: ActionStart}
		}
		return ParsedAction{Kind: ActionChoosePlan, PlanKey: arg}
	case "method":
		return ParsedAction{Kind: ActionChooseMethod, Method: arg}
	case "paypal", "crypto":
		return ParsedAction{Kind: ActionChooseMethod, Method: action}
	case "copy":
		return ParsedAction{Kind: ActionCopy, Method: arg}
	case "paid":
		return ParsedAction{Kind: ActionClaimPaid, Method: arg}
	case "back":
		return ParsedAction{Kind: ActionBack, Target: arg}
	case "support":
		return ParsedAction{Kind: ActionSupport}
	case "faq":
		return ParsedAction{Kind: ActionFAQ}
	default:
		return ParsedAction{Kind: ActionStart}
	}
}

// parseLegacyToken handles the flat token grammar one pre-existing bot still
// uses: select_<plan>, payment_<method>_<plan>, copy_<method>, paid, back,
// support.
func parseLegacyToken(token string) ParsedAction {
	switch token {
	case "paid":
		return ParsedAction{Kind: ActionClaimPaid}
	case "back":
		return ParsedAction{Kind: ActionBack}
	case "support":
		return ParsedAction{Kind: ActionSupport}
	}

	if plan, ok := strings.CutPrefix(token, "select_"); ok && plan != "" {
		return ParsedAction{Kind: ActionChoosePlan, PlanKey: plan}
	}
	if rest, ok := strings.CutPrefix(token, "payment_"); ok {
		method, plan, found := strings.Cut(rest, "_")
		if !found || !catalog.KnownMethod(method) {
			return ParsedAction{Kind: ActionStart}
		}
		return ParsedAction{Kind: ActionChooseMethod, Method: method, PlanKey: plan}
	}
	if method, ok := strings.CutPrefix(token, "copy_"); ok && catalog.KnownMethod(method) {
		return ParsedAction{Kind: ActionCopy, Method: method}
	}

	return ParsedAction{Kind: ActionStart}
}

// Token builders. Buttons must emit tokens in the grammar their tenant
// parses, so every builder goes through the tenant.

func choosePlanToken(t *catalog.Tenant, planKey string) string {
	if t.LegacyTokens {
		return "select_" + planKey
	}
	return t.ID + ":plan:" + planKey
}

func methodToken(t *catalog.Tenant, method, planKey string) string {
	if t.LegacyTokens {
		return "payment_" + method + "_" + planKey
	}
	return t.ID + ":method:" + method
}

// directMethodToken is the start-screen shortcut for tenants without plans.
func directMethodToken(t *catalog.Tenant, method string) string {
	if t.LegacyTokens {
		return "payment_" + method + "_"
	}
	return t.ID + ":" + method
}

func copyToken(t *catalog.Tenant, method string) string {
	if t.LegacyTokens {
		return "copy_" + method
	}
	return t.ID + ":copy:" + method
}

func paidToken(t *catalog.Tenant, method string) string {
	if t.LegacyTokens {
		return "paid"
	}
	return t.ID + ":paid:" + method
}

func backToken(t *catalog.Tenant, toPlan bool) string {
	if t.LegacyTokens {
		return "back"
	}
	if toPlan {
		return t.ID + ":back:plan"
	}
	return t.ID + ":back"
}

func supportToken(t *catalog.Tenant) string {
	if t.LegacyTokens {
		return "support"
	}
	return t.ID + ":support"
}

// faqToken has no legacy form: StartScreen never renders the FAQ button for
// flat-grammar tenants.
func faqToken(t *catalog.Tenant) string {
	return t.ID + ":faq"
}
