package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/storestorm/intake/pkg/errorsx"
	"github.com/storestorm/intake/pkg/intake"
)

// Committer turns a confirmed session into a stored order. It never mutates
// the session; on failure the caller keeps the cart and may retry.
type Committer struct {
	store Store
	log   *slog.Logger
}

func NewCommitter(store Store, log *slog.Logger) *Committer {
	if log == nil {
		log = slog.Default()
	}
	return &Committer{store: store, log: log}
}

func (c *Committer) Commit(ctx context.Context, sess *intake.Session) (string, string, error) {
	rec := BuildRecord(sess)
	if len(rec.Items) == 0 {
		return "", "", errorsx.Wrap(fmt.Errorf("no matched items in session %s", sess.Key), errorsx.ReasonOrderCommit)
	}

	id, err := c.store.CreateOrder(ctx, rec)
	if err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonOrderCommit)
		c.log.Error("order_commit_failed",
			"order_number", rec.OrderNumber,
			"shop_id", rec.ShopID,
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error())
		return "", "", err
	}

	c.log.Info("order_committed",
		"order_id", id,
		"order_number", rec.OrderNumber,
		"source", rec.Source,
		"lines", len(rec.Items),
		"total", rec.TotalAmount)
	return id, rec.OrderNumber, nil
}

// BuildRecord assembles the order row from a session. Unmatched items are
// dropped; the total covers matched lines only.
func BuildRecord(sess *intake.Session) Record {
	var lines []Line
	var total float64
	for _, item := range sess.Items {
		if !item.Matched {
			continue
		}
		lineTotal := item.Price * item.Quantity
		lines = append(lines, Line{
			ProductID:   item.ProductID,
			ProductName: item.DisplayName(),
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			Price:       item.Price,
			Total:       lineTotal,
		})
		total += lineTotal
	}

	return Record{
		ShopID:          sess.ShopID,
		CustomerID:      sess.UserID,
		OrderNumber:     OrderNumber(sess),
		Source:          string(sess.Channel),
		Items:           lines,
		TotalAmount:     total,
		GSTAmount:       0,
		Status:          "pending",
		DeliveryAddress: deliveryAddress(sess),
		Notes:           orderNotes(sess),
	}
}

// OrderNumber derives a short human-readable reference per channel: voice
// orders reuse the call SID tail, chat orders fold the numeric user ID.
func OrderNumber(sess *intake.Session) string {
	switch sess.Channel {
	case intake.ChannelTelegram:
		if n, err := strconv.ParseInt(sess.UserID, 10, 64); err == nil && n >= 0 {
			return fmt.Sprintf("TG-%05d", n%100000)
		}
		return "TG-" + keyTail(sess.UserID)
	case intake.ChannelVoice:
		return "VO-" + keyTail(sess.Key)
	default:
		return "OR-" + keyTail(sess.Key)
	}
}

func keyTail(s string) string {
	if len(s) > 6 {
		s = s[len(s)-6:]
	}
	return strings.ToUpper(s)
}

func deliveryAddress(sess *intake.Session) string {
	if addr := strings.TrimSpace(sess.DeliveryAddress); addr != "" {
		return addr
	}
	if sess.Channel == intake.ChannelTelegram {
		return "To be confirmed via chat"
	}
	return "To be confirmed"
}

func orderNotes(sess *intake.Session) string {
	if sess.Channel == intake.ChannelTelegram {
		return fmt.Sprintf("Telegram order from user %s", sess.UserID)
	}
	return fmt.Sprintf("Voice order from %s", sess.UserID)
}

var _ intake.Committer = (*Committer)(nil)
