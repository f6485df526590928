package flow

import (
	"fmt"

	"github.com/wisbric/sellowl/pkg/catalog"
	"github.com/wisbric/sellowl/pkg/state"
)

// bundleURL is the cross-sell link shown on every tenant's start screen.
// Deliberately identical across tenants: it points at the shared bundle
// storefront, not at anything tenant-owned.
const bundleURL = "https://t.me/vip_bundle_offers"

// Button is one actionable choice on a screen. Exactly one of Callback or
// URL is set.
type Button struct {
	Label    string
	Callback string
	URL      string
}

// Screen is a rendered view: message text plus button rows. Rendering is
// pure; screens never mutate conversation state.
type Screen struct {
	Text string
	Rows [][]Button
}

func row(buttons ...Button) []Button { return buttons }

// StartScreen builds the top-level menu. Tenants with satisfiable plans get
// one button per plan; plan-less tenants get direct payment-method buttons.
// Support and the bundle cross-sell are always appended.
func StartScreen(t *catalog.Tenant) Screen {
	s := Screen{Text: fmt.Sprintf("%s\n\n%s", t.Title, t.Description)}

	plans := t.SatisfiablePlans()
	if len(plans) > 0 {
		for _, p := range plans {
			label := p.Label
			if p.Price != "" {
				label = fmt.Sprintf("%s — %s", p.Label, p.Price)
			}
			s.Rows = append(s.Rows, row(Button{Label: label, Callback: choosePlanToken(t, p.Key)}))
		}
	} else {
		if dest, ok := t.DestinationFor("", catalog.MethodCard); ok {
			s.Rows = append(s.Rows, row(Button{Label: "Apple Pay & Google Pay", URL: dest}))
		}
		s.Rows = append(s.Rows, row(Button{Label: "PayPal Payment", Callback: directMethodToken(t, catalog.MethodPayPal)}))
		s.Rows = append(s.Rows, row(Button{Label: "Crypto Payment", Callback: directMethodToken(t, catalog.MethodCrypto)}))
	}

	helpRow := row(Button{Label: "💬 Support", Callback: supportToken(t)})
	if !t.LegacyTokens {
		// The flat grammar predates the FAQ screen and has no token for it.
		helpRow = append(helpRow, Button{Label: "❓ FAQ", Callback: faqToken(t)})
	}
	s.Rows = append(s.Rows, helpRow)
	s.Rows = append(s.Rows, row(Button{Label: "⭐ All-Access Bundle", URL: bundleURL}))
	return s
}

// PlanChosenScreen confirms the selected plan and offers the three payment
// methods plus a way back.
func PlanChosenScreen(t *catalog.Tenant, p catalog.Plan) Screen {
	name := p.DisplayName
	if name == "" {
		name = p.Label
	}
	return Screen{
		Text: fmt.Sprintf("✅ *%s* — %s\n\nHow would you like to pay?", name, p.Price),
		Rows: [][]Button{
			row(Button{Label: "💳 Card", Callback: methodToken(t, catalog.MethodCard, p.Key)}),
			row(Button{Label: "⚡ Crypto", Callback: methodToken(t, catalog.MethodCrypto, p.Key)}),
			row(Button{Label: "💸 PayPal", Callback: methodToken(t, catalog.MethodPayPal, p.Key)}),
			row(Button{Label: "🔙 Back", Callback: backToken(t, false)}),
		},
	}
}

// CardScreen renders the checkout link for the card method. Callers resolve
// the destination first; a plan without one never reaches this screen.
func CardScreen(t *catalog.Tenant, st state.ConversationState, dest string) Screen {
	price := t.PriceFor(st.SelectedPlanKey, catalog.MethodCard)
	text := "💳 *Pay by card*\n\nApple Pay and Google Pay supported. Receipts are emailed instantly."
	if price != "" {
		text = fmt.Sprintf("💳 *Pay by card* — %s\n\nApple Pay and Google Pay supported. Receipts are emailed instantly.", price)
	}
	return Screen{
		Text: text,
		Rows: [][]Button{
			row(Button{Label: "🛒 Open checkout", URL: dest}),
			row(Button{Label: "✅ I've paid", Callback: paidToken(t, catalog.MethodCard)}),
			row(Button{Label: "🔙 Back", Callback: backToken(t, st.SelectedPlanKey != "")}),
		},
	}
}

// MethodScreen renders the paypal/crypto payment instructions with the
// resolved price and destination.
func MethodScreen(t *catalog.Tenant, st state.ConversationState, method, dest string) Screen {
	price := t.PriceFor(st.SelectedPlanKey, method)

	var text string
	switch method {
	case catalog.MethodPayPal:
		text = fmt.Sprintf("💸 *Pay with PayPal* — %s\n\n`%s`\n\nSend as *Friends & Family*. Tap *I've paid* once it's done.", price, dest)
	case catalog.MethodCrypto:
		text = fmt.Sprintf("⚡ *Crypto payment* — %s\n\n`%s`\n\nTap *I've paid* once the transfer is sent.", price, dest)
	}

	return Screen{
		Text: text,
		Rows: [][]Button{
			row(Button{Label: "📋 Copy details", Callback: copyToken(t, method)}),
			row(Button{Label: "✅ I've paid", Callback: paidToken(t, method)}),
			row(Button{Label: "🔙 Back", Callback: backToken(t, st.SelectedPlanKey != "")}),
		},
	}
}

// PaidScreen is the post-claim confirmation. Card checkouts deliver by
// email; the manual methods ask for proof via support.
func PaidScreen(t *catalog.Tenant, method string) Screen {
	var text string
	if method == catalog.MethodCard {
		text = fmt.Sprintf("🎉 *Thank you!*\n\nYour %s access link is emailed instantly after checkout. Anything missing? Message %s.", t.Title, t.SupportContact)
	} else {
		text = fmt.Sprintf("✅ *Thanks for your payment!*\n\nSend your payment proof to %s to unlock %s.", t.SupportContact, t.Title)
	}
	return Screen{
		Text: text,
		Rows: [][]Button{row(Button{Label: "🔙 Back to menu", Callback: backToken(t, false)})},
	}
}

// SupportScreen shows the tenant's support contact.
func SupportScreen(t *catalog.Tenant) Screen {
	return Screen{
		Text: fmt.Sprintf("💬 Need help? Contact %s — we reply fast.", t.SupportContact),
		Rows: [][]Button{row(Button{Label: "🔙 Back", Callback: backToken(t, false)})},
	}
}

// FAQScreen shows the static FAQ panel.
func FAQScreen(t *catalog.Tenant) Screen {
	return Screen{
		Text: fmt.Sprintf("❓ *FAQ*\n\n• *How do I get access?* Card payments deliver by email instantly; PayPal and crypto are verified by support.\n• *Something went wrong?* Message %s.\n• *Refunds?* Handled case by case via support.", t.SupportContact),
		Rows: [][]Button{row(Button{Label: "🔙 Back", Callback: backToken(t, false)})},
	}
}
