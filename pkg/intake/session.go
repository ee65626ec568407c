package intake

import (
	"fmt"
	"strings"
	"time"
)

// Channel identifies the conversation medium. Voice and chat sessions never
// share a keyspace: a phone call and a chat from the same person are
// independent conversations.
type Channel string

const (
	ChannelVoice    Channel = "voice"
	ChannelTelegram Channel = "telegram"
	ChannelWhatsApp Channel = "whatsapp"
)

type State int

const (
	StateGreeting State = iota
	StateCollecting
	StateConfirming
	StateCollectingAddress
	StateComplete
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateCollecting:
		return "collecting"
	case StateConfirming:
		return "confirming"
	case StateCollectingAddress:
		return "address"
	case StateComplete:
		return "complete"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateCancelled
}

// Session tracks one in-progress order intake conversation.
type Session struct {
	// Key is the channel-local conversation identity (call SID for voice,
	// chat user ID for telegram).
	Key     string
	UserID  string
	ShopID  string
	Channel Channel

	State State

	// Items only grows; unmatched items are never appended.
	Items     []ParsedItem
	RawInputs []string

	DeliveryAddress string
	CustomerName    string
	Notes           string

	OrderID     string
	OrderNumber string

	CreatedAt    time.Time
	LastActivity time.Time
}

// Total sums price times quantity over matched items.
func (s *Session) Total() float64 {
	var total float64
	for _, item := range s.Items {
		if item.Matched {
			total += item.Price * item.Quantity
		}
	}
	return total
}

// Summary renders the cart for speech or chat, Hinglish-style joiner for
// voice ("2 kg rice aur 1 liter oil").
func Summary(items []ParsedItem, lang string) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if !item.Matched {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", formatQty(item.Quantity), item.Unit, item.DisplayName()))
	}
	if len(parts) == 0 {
		if lang == "en" {
			return "No items"
		}
		return "Koi item nahi"
	}
	if len(parts) == 1 {
		return parts[0]
	}
	joiner := " aur "
	if lang == "en" {
		joiner = " and "
	}
	return strings.Join(parts[:len(parts)-1], ", ") + joiner + parts[len(parts)-1]
}

func formatQty(q float64) string {
	if q == float64(int64(q)) {
		return fmt.Sprintf("%d", int64(q))
	}
	return fmt.Sprintf("%g", q)
}

// SessionStore is the keyed, transient conversation state repository.
// GetOrCreate must be atomic per (channel, key) so near-simultaneous
// webhook deliveries for one identity never observe two sessions.
type SessionStore interface {
	GetOrCreate(channel Channel, key, userID, shopID string) (*Session, bool)
	Get(channel Channel, key string) (*Session, bool)
	Delete(channel Channel, key string)
}
