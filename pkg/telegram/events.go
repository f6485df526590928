package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wisbric/sellowl/pkg/flow"
)

// EventFromUpdate extracts a flow.Event from an inbound update. ok is false
// for update types the storefront ignores (edits, inline queries, joins).
func EventFromUpdate(upd tgbotapi.Update) (flow.Event, bool) {
	if cq := upd.CallbackQuery; cq != nil && cq.From != nil {
		ev := flow.Event{
			UserID:     cq.From.ID,
			CallbackID: cq.ID,
			Token:      cq.Data,
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			ev.ChatID = cq.Message.Chat.ID
			ev.MessageID = cq.Message.MessageID
		}
		return ev, true
	}

	if m := upd.Message; m != nil && m.From != nil && m.Chat != nil {
		ev := flow.Event{
			UserID: m.From.ID,
			ChatID: m.Chat.ID,
		}
		if m.IsCommand() {
			ev.Command = m.Command()
		}
		return ev, true
	}

	return flow.Event{}, false
}
