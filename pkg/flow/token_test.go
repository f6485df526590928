package flow

import (
	"testing"

	"github.com/wisbric/sellowl/pkg/catalog"
)

func genericTenant() *catalog.Tenant {
	return &catalog.Tenant{ID: "acme"}
}

func legacyTenant() *catalog.Tenant {
	return &catalog.Tenant{ID: "retro", LegacyTokens: true}
}

func TestParseToken_Generic(t *testing.T) {
	tn := genericTenant()

	tests := []struct {
		token string
		want  ParsedAction
	}{
		{"acme:plan:1_month", ParsedAction{Kind: ActionChoosePlan, PlanKey: "1_month"}},
		{"acme:choose_plan:lifetime", ParsedAction{Kind: ActionChoosePlan, PlanKey: "lifetime"}},
		{"acme:method:card", ParsedAction{Kind: ActionChooseMethod, Method: "card"}},
		{"acme:paypal", ParsedAction{Kind: ActionChooseMethod, Method: "paypal"}},
		{"acme:crypto", ParsedAction{Kind: ActionChooseMethod, Method: "crypto"}},
		{"acme:copy:crypto", ParsedAction{Kind: ActionCopy, Method: "crypto"}},
		{"acme:paid:card", ParsedAction{Kind: ActionClaimPaid, Method: "card"}},
		{"acme:back", ParsedAction{Kind: ActionBack}},
		{"acme:back:plan", ParsedAction{Kind: ActionBack, Target: "plan"}},
		{"acme:support", ParsedAction{Kind: ActionSupport}},
		{"acme:faq", ParsedAction{Kind: ActionFAQ}},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := ParseToken(tn, tt.token); got != tt.want {
				t.Errorf("ParseToken(%q) = %+v, want %+v", tt.token, got, tt.want)
			}
		})
	}
}

func TestParseToken_GenericMalformed(t *testing.T) {
	tn := genericTenant()

	// All of these must degrade to Start, never error.
	tokens := []string{
		"",
		"acme",
		"garbage",
		"acme:unknown_action",
		"acme:plan", // plan with no key
		"other:plan:1_month", // tenant mismatch
		":plan:1_month",
		"acme:::::",
	}
	for _, token := range tokens {
		if got := ParseToken(tn, token); got.Kind != ActionStart {
			t.Errorf("ParseToken(%q).Kind = %v, want ActionStart", token, got.Kind)
		}
	}
}

func TestParseToken_Legacy(t *testing.T) {
	tn := legacyTenant()

	tests := []struct {
		token string
		want  ParsedAction
	}{
		{"select_1_month", ParsedAction{Kind: ActionChoosePlan, PlanKey: "1_month"}},
		{"payment_card_1_month", ParsedAction{Kind: ActionChooseMethod, Method: "card", PlanKey: "1_month"}},
		{"payment_paypal_", ParsedAction{Kind: ActionChooseMethod, Method: "paypal"}},
		{"copy_crypto", ParsedAction{Kind: ActionCopy, Method: "crypto"}},
		{"paid", ParsedAction{Kind: ActionClaimPaid}},
		{"back", ParsedAction{Kind: ActionBack}},
		{"support", ParsedAction{Kind: ActionSupport}},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := ParseToken(tn, tt.token); got != tt.want {
				t.Errorf("ParseToken(%q) = %+v, want %+v", tt.token, got, tt.want)
			}
		})
	}
}

func TestParseToken_LegacyMalformed(t *testing.T) {
	tn := legacyTenant()

	tokens := []string{
		"",
		"select_",
		"payment_venmo_1_month", // unknown method
		"payment_card",          // no plan separator
		"copy_venmo",
		"retro:plan:x", // generic token on a legacy tenant
		"thankyou",
	}
	for _, token := range tokens {
		if got := ParseToken(tn, token); got.Kind != ActionStart {
			t.Errorf("ParseToken(%q).Kind = %v, want ActionStart", token, got.Kind)
		}
	}
}

func TestTokenBuildersRoundTrip(t *testing.T) {
	// Every token a screen emits must parse back to the action it encodes,
	// in both grammars.
	for _, tn := range []*catalog.Tenant{genericTenant(), legacyTenant()} {
		if got := ParseToken(tn, choosePlanToken(tn, "p1")); got.Kind != ActionChoosePlan || got.PlanKey != "p1" {
			t.Errorf("tenant %s: choosePlanToken round trip = %+v", tn.ID, got)
		}
		if got := ParseToken(tn, methodToken(tn, "card", "p1")); got.Kind != ActionChooseMethod || got.Method != "card" {
			t.Errorf("tenant %s: methodToken round trip = %+v", tn.ID, got)
		}
		if got := ParseToken(tn, directMethodToken(tn, "paypal")); got.Kind != ActionChooseMethod || got.Method != "paypal" {
			t.Errorf("tenant %s: directMethodToken round trip = %+v", tn.ID, got)
		}
		if got := ParseToken(tn, copyToken(tn, "crypto")); got.Kind != ActionCopy || got.Method != "crypto" {
			t.Errorf("tenant %s: copyToken round trip = %+v", tn.ID, got)
		}
		if got := ParseToken(tn, paidToken(tn, "card")); got.Kind != ActionClaimPaid {
			t.Errorf("tenant %s: paidToken round trip = %+v", tn.ID, got)
		}
		if got := ParseToken(tn, backToken(tn, false)); got.Kind != ActionBack {
			t.Errorf("tenant %s: backToken round trip = %+v", tn.ID, got)
		}
		if got := ParseToken(tn, supportToken(tn)); got.Kind != ActionSupport {
			t.Errorf("tenant %s: supportToken round trip = %+v", tn.ID, got)
		}
	}
}
