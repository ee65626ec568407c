package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/storestorm/intake/pkg/intake"
)

// Callback data values bound to the inline keyboards.
const (
	cbAddMore = "add_more"
	cbDone    = "done_adding"
	cbConfirm = "confirm_order"
	cbCancel  = "cancel_order"
)

func addMoreKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add More Items", cbAddMore),
			tgbotapi.NewInlineKeyboardButtonData("✅ That's All", cbDone),
		),
	)
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm Order", cbConfirm),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
		),
	)
}

// reply is a rendered chat response. A nil markup sends plain text.
type reply struct {
	text   string
	markup *tgbotapi.InlineKeyboardMarkup
}

func render(out intake.Output, shopName string) reply {
	switch out.Kind {
	case intake.OutGreeting:
		return reply{text: fmt.Sprintf(
			"🛒 <b>Welcome to %s!</b>\n\n"+
				"Tell me what you'd like to order.\n"+
				"Example: <i>2 kg rice and 1 liter oil</i>\n\n"+
				"Type /cancel to cancel anytime.", shopName)}

	case intake.OutReprompt:
		return reply{text: "🤔 I couldn't understand that. Please tell me what you'd like to order.\n" +
			"Example: <i>2 kg rice, 1 liter oil, 500g sugar</i>"}

	case intake.OutEmptyCart:
		return reply{text: "🛒 Your cart is empty. Tell me what you'd like to order!"}

	case intake.OutItemsAdded:
		return renderItemsAdded(out)

	case intake.OutConfirm:
		kb := confirmKeyboard()
		return reply{
			text: fmt.Sprintf("📦 <b>Order Summary:</b>\n%s\n\n💰 <b>Total: ₹%.0f</b>\n\nConfirm your order?",
				itemLines(out.Matched), out.Total),
			markup: &kb,
		}

	case intake.OutAskAddress:
		return reply{text: "📍 Please send your delivery address: area, landmark, and house number."}

	case intake.OutOrderPlaced:
		return reply{text: fmt.Sprintf(
			"🎉 <b>Order Confirmed!</b>\n\n"+
				"📦 Order Number: <code>%s</code>\n"+
				"💰 Total: ₹%.0f\n\n"+
				"Your order will be delivered soon!\n"+
				"Send /start to place another order.", out.OrderNumber, out.Total)}

	case intake.OutOrderCancelled:
		return reply{text: "❌ Order cancelled. Send /start to begin a new order."}

	case intake.OutCommitFailed:
		return reply{text: "❌ Sorry, there was an error creating your order. Please try again."}

	case intake.OutCartStatus:
		if len(out.Matched) == 0 {
			return reply{text: "🛒 Your cart is empty. Tell me what you'd like to order!"}
		}
		return reply{text: fmt.Sprintf("📦 <b>Current Order:</b>\n%s\n\n💰 <b>Total: ₹%.0f</b>",
			itemLines(out.Matched), out.Total)}

	case intake.OutAddMore:
		return reply{text: "➕ Tell me what else you'd like to add:"}
	}
	return reply{text: "🤔 I couldn't understand that. Please try again."}
}

func renderItemsAdded(out intake.Output) reply {
	var b strings.Builder
	if len(out.Matched) > 0 {
		b.WriteString("✅ <b>Added to cart:</b>\n")
		for _, item := range out.Matched {
			b.WriteString(fmt.Sprintf("  • %s %s %s - ₹%.0f\n",
				trimFloat(item.Quantity), item.Unit, item.DisplayName(), item.LineTotal()))
		}
	}
	if len(out.Unmatched) > 0 {
		b.WriteString("\n⚠️ <b>Not found in store:</b>\n")
		for _, item := range out.Unmatched {
			b.WriteString(fmt.Sprintf("  • %s\n", item.ProductName))
		}
	}
	if out.Total > 0 {
		b.WriteString(fmt.Sprintf("\n💰 <b>Cart Total: ₹%.0f</b>", out.Total))
		kb := addMoreKeyboard()
		return reply{text: b.String(), markup: &kb}
	}
	return reply{text: strings.TrimSpace(b.String())}
}

func itemLines(items []intake.ParsedItem) string {
	var lines []string
	for _, item := range items {
		if !item.Matched {
			continue
		}
		lines = append(lines, fmt.Sprintf("  • %s %s %s — ₹%.0f",
			trimFloat(item.Quantity), item.Unit, item.DisplayName(), item.LineTotal()))
	}
	if len(lines) == 0 {
		return "  (empty)"
	}
	return strings.Join(lines, "\n")
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
