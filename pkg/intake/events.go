package intake

// Event is the tagged input variant fed to the state machine. Adapters
// construct exactly one event per webhook delivery at the channel boundary.
type Event interface {
	isEvent()
}

// StartEvent opens (or restarts) a conversation: an answered call or /start.
type StartEvent struct{}

// TextEvent carries a chat message or a speech transcript.
type TextEvent struct {
	Text string
}

// ImageEvent carries a downloaded shopping-list photograph.
type ImageEvent struct {
	Data []byte
	Mime string
}

// DTMFEvent carries keypad digits from the telephony channel.
type DTMFEvent struct {
	Digits string
}

type ButtonAction string

const (
	ActionAddMore ButtonAction = "add_more"
	ActionDone    ButtonAction = "done_adding"
	ActionConfirm ButtonAction = "confirm_order"
	ActionCancel  ButtonAction = "cancel_order"
)

// ButtonEvent carries an inline-keyboard press from the chat channel.
type ButtonEvent struct {
	Action ButtonAction
}

// CancelEvent is an explicit cancel command, honored from any state.
type CancelEvent struct{}

func (StartEvent) isEvent()  {}
func (TextEvent) isEvent()   {}
func (ImageEvent) isEvent()  {}
func (DTMFEvent) isEvent()   {}
func (ButtonEvent) isEvent() {}
func (CancelEvent) isEvent() {}
