package intake

import (
	"context"
	"log/slog"
	"time"

	"github.com/storestorm/intake/pkg/metrics"
)

// OutputKind names the channel-agnostic response the adapter must render.
type OutputKind int

const (
	OutGreeting OutputKind = iota
	OutReprompt
	OutItemsAdded
	OutEmptyCart
	OutConfirm
	OutAskAddress
	OutOrderPlaced
	OutOrderCancelled
	OutCommitFailed
	OutCartStatus
	OutAddMore
)

// Output is what the state machine decided to say next. Channel adapters
// turn it into TwiML or chat text; they never inspect session state again.
type Output struct {
	Kind        OutputKind
	State       State
	Matched     []ParsedItem
	Unmatched   []ParsedItem
	Summary     string
	Total       float64
	OrderNumber string
}

// Extractor turns raw input into unvalidated items. Failures surface as an
// empty slice, never as an error.
type Extractor interface {
	ExtractText(ctx context.Context, text string) []ParsedItem
	ExtractImage(ctx context.Context, data []byte, mime string) []ParsedItem
}

// Matcher reconciles extracted items against the shop catalog. Every input
// item lands in exactly one of the two returned slices.
type Matcher interface {
	Match(ctx context.Context, items []ParsedItem, shopID string) (matched, unmatched []ParsedItem)
}

// Committer persists a confirmed session as an order.
type Committer interface {
	Commit(ctx context.Context, sess *Session) (orderID, orderNumber string, err error)
}

// Machine drives the conversational intake protocol. One Handle call per
// webhook turn; the session is owned exclusively by that turn's handler.
type Machine struct {
	extractor Extractor
	matcher   Matcher
	committer Committer
	sessions  SessionStore

	// CollectAddress routes confirmed orders through an address prompt
	// before committing. Off by default.
	CollectAddress bool

	clock func() time.Time
	log   *slog.Logger
	obs   metrics.Observer
}

func NewMachine(extractor Extractor, matcher Matcher, committer Committer, sessions SessionStore, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	return &Machine{
		extractor: extractor,
		matcher:   matcher,
		committer: committer,
		sessions:  sessions,
		clock:     time.Now,
		log:       log,
		obs:       metrics.NoopObserver{},
	}
}

// SetObserver installs a metrics sink for pipeline latency events.
func (m *Machine) SetObserver(obs metrics.Observer) {
	if obs != nil {
		m.obs = obs
	}
}

// SetClock overrides the activity-stamp clock.
func (m *Machine) SetClock(clock func() time.Time) {
	if clock != nil {
		m.clock = clock
	}
}

// Handle applies one input event to the session and returns the response
// to render. It never returns an error: every failure mode maps onto an
// output the adapter can voice back to the customer.
func (m *Machine) Handle(ctx context.Context, sess *Session, ev Event) Output {
	sess.LastActivity = m.clock()

	switch e := ev.(type) {
	case StartEvent:
		sess.State = StateCollecting
		sess.Items = nil
		return m.out(sess, OutGreeting)

	case CancelEvent:
		return m.cancel(sess)

	case TextEvent:
		return m.handleText(ctx, sess, e.Text)

	case ImageEvent:
		sess.State = stateForInput(sess.State)
		return m.ingestItems(ctx, sess, m.extractImage(ctx, e.Data, e.Mime))

	case DTMFEvent:
		if sess.State == StateConfirming {
			return m.classifyConfirm(ctx, sess, "", e.Digits)
		}
		return m.out(sess, OutReprompt)

	case ButtonEvent:
		return m.handleButton(ctx, sess, e.Action)
	}
	return m.out(sess, OutReprompt)
}

// Status reports the current cart without touching state.
func (m *Machine) Status(sess *Session) Output {
	out := m.out(sess, OutCartStatus)
	out.Matched = sess.Items
	return out
}

func (m *Machine) handleText(ctx context.Context, sess *Session, text string) Output {
	if IsCancelCommand(text) {
		return m.cancel(sess)
	}

	switch sess.State {
	case StateConfirming:
		return m.classifyConfirm(ctx, sess, text, "")
	case StateCollectingAddress:
		sess.DeliveryAddress = text
		return m.commit(ctx, sess)
	}

	sess.State = stateForInput(sess.State)
	sess.RawInputs = append(sess.RawInputs, text)

	if IsDone(text) {
		return m.finishCollecting(sess)
	}
	return m.ingestItems(ctx, sess, m.extractText(ctx, text))
}

func (m *Machine) handleButton(ctx context.Context, sess *Session, action ButtonAction) Output {
	switch action {
	case ActionCancel:
		return m.cancel(sess)
	case ActionAddMore:
		sess.State = StateCollecting
		return m.out(sess, OutAddMore)
	case ActionDone:
		return m.finishCollecting(sess)
	case ActionConfirm:
		if sess.State != StateConfirming {
			return m.finishCollecting(sess)
		}
		return m.affirm(ctx, sess)
	}
	return m.out(sess, OutReprompt)
}

// finishCollecting handles the explicit "done" signal. With an empty cart
// the machine stays in collecting and asks again instead of advancing.
func (m *Machine) finishCollecting(sess *Session) Output {
	if len(sess.Items) == 0 {
		sess.State = StateCollecting
		return m.out(sess, OutEmptyCart)
	}
	sess.State = StateConfirming
	out := m.out(sess, OutConfirm)
	out.Matched = sess.Items
	return out
}

func (m *Machine) ingestItems(ctx context.Context, sess *Session, parsed []ParsedItem) Output {
	if len(parsed) == 0 {
		m.obs.RecordEvent(metrics.MetricsEvent{Name: metrics.EventExtractEmpty, Time: m.clock(), Value: 1})
		return m.out(sess, OutReprompt)
	}

	start := m.clock()
	matched, unmatched := m.matcher.Match(ctx, parsed, sess.ShopID)
	m.obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventMatchLatency,
		Time:  m.clock(),
		Value: float64(m.clock().Sub(start).Milliseconds()),
		Tags:  map[string]string{"shop_id": sess.ShopID},
	})
	if len(unmatched) > 0 {
		m.obs.RecordEvent(metrics.MetricsEvent{Name: metrics.EventMatchUnmatched, Time: m.clock(), Value: float64(len(unmatched))})
	}

	sess.Items = append(sess.Items, matched...)

	out := m.out(sess, OutItemsAdded)
	out.Matched = matched
	out.Unmatched = unmatched
	return out
}

func (m *Machine) classifyConfirm(ctx context.Context, sess *Session, text, digits string) Output {
	switch {
	case digits == "1" || (text != "" && IsAffirmative(text)):
		return m.affirm(ctx, sess)
	case digits == "2" || (text != "" && IsNegative(text)):
		return m.cancel(sess)
	default:
		// Ambiguous: re-render the confirmation prompt unchanged.
		out := m.out(sess, OutConfirm)
		out.Matched = sess.Items
		return out
	}
}

func (m *Machine) affirm(ctx context.Context, sess *Session) Output {
	if m.CollectAddress && sess.DeliveryAddress == "" {
		sess.State = StateCollectingAddress
		return m.out(sess, OutAskAddress)
	}
	return m.commit(ctx, sess)
}

func (m *Machine) commit(ctx context.Context, sess *Session) Output {
	start := m.clock()
	orderID, orderNumber, err := m.committer.Commit(ctx, sess)
	m.obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventCommitLatency,
		Time:  m.clock(),
		Value: float64(m.clock().Sub(start).Milliseconds()),
		Tags:  map[string]string{"channel": string(sess.Channel)},
	})
	if err != nil {
		m.obs.RecordEvent(metrics.MetricsEvent{Name: metrics.EventCommitFailed, Time: m.clock(), Value: 1})
		m.log.Error("order_commit_failed",
			"error", err.Error(),
			"shop_id", sess.ShopID,
			"channel", string(sess.Channel),
		)
		// Keep the session so a repeat confirmation can retry.
		sess.State = StateConfirming
		return m.out(sess, OutCommitFailed)
	}

	total := sess.Total()
	sess.OrderID = orderID
	sess.OrderNumber = orderNumber
	sess.State = StateComplete
	m.sessions.Delete(sess.Channel, sess.Key)

	m.log.Info("order_placed",
		"order_number", orderNumber,
		"channel", string(sess.Channel),
		"items", len(sess.Items),
		"total", total,
	)

	out := m.out(sess, OutOrderPlaced)
	out.OrderNumber = orderNumber
	out.Total = total
	return out
}

func (m *Machine) cancel(sess *Session) Output {
	if sess.State.Terminal() {
		return m.out(sess, OutOrderCancelled)
	}
	sess.State = StateCancelled
	m.sessions.Delete(sess.Channel, sess.Key)
	return m.out(sess, OutOrderCancelled)
}

func (m *Machine) extractText(ctx context.Context, text string) []ParsedItem {
	start := m.clock()
	items := m.extractor.ExtractText(ctx, text)
	m.recordExtract(start)
	return items
}

func (m *Machine) extractImage(ctx context.Context, data []byte, mime string) []ParsedItem {
	start := m.clock()
	items := m.extractor.ExtractImage(ctx, data, mime)
	m.recordExtract(start)
	return items
}

func (m *Machine) recordExtract(start time.Time) {
	m.obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventExtractLatency,
		Time:  m.clock(),
		Value: float64(m.clock().Sub(start).Milliseconds()),
	})
}

func (m *Machine) out(sess *Session, kind OutputKind) Output {
	return Output{
		Kind:    kind,
		State:   sess.State,
		Summary: Summary(sess.Items, "hi"),
		Total:   sess.Total(),
	}
}

// stateForInput maps the pre-input state onto the collecting phase: a
// session receiving its first real input moves straight past greeting.
func stateForInput(s State) State {
	if s == StateGreeting {
		return StateCollecting
	}
	return s
}
