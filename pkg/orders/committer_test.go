package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/storestorm/intake/pkg/errorsx"
	"github.com/storestorm/intake/pkg/intake"
)

type stubStore struct {
	rec Record
	id  string
	err error
}

func (s *stubStore) CreateOrder(ctx context.Context, rec Record) (string, error) {
	s.rec = rec
	return s.id, s.err
}

func voiceSession() *intake.Session {
	return &intake.Session{
		Key:     "CAf00dfeedbeef",
		UserID:  "+919876543210",
		ShopID:  "shop-1",
		Channel: intake.ChannelVoice,
		Items: []intake.ParsedItem{
			{ProductName: "rice", MatchedName: "Basmati Rice", ProductID: "p1", Quantity: 2, Unit: "kg", Price: 120, Matched: true},
			{ProductName: "quinoa", Quantity: 1, Unit: "kg", Matched: false},
			{ProductName: "oil", MatchedName: "Sunflower Oil", ProductID: "p2", Quantity: 1, Unit: "liter", Price: 180, Matched: true},
		},
	}
}

func TestCommitDropsUnmatchedAndTotalsMatched(t *testing.T) {
	store := &stubStore{id: "row-1"}
	c := NewCommitter(store, nil)

	id, number, err := c.Commit(context.Background(), voiceSession())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "row-1" {
		t.Fatalf("unexpected order id %q", id)
	}
	if number != "VO-EDBEEF" {
		t.Fatalf("unexpected order number %q", number)
	}
	if len(store.rec.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(store.rec.Items))
	}
	if store.rec.TotalAmount != 2*120+1*180 {
		t.Fatalf("unexpected total %v", store.rec.TotalAmount)
	}
	if store.rec.Status != "pending" || store.rec.GSTAmount != 0 {
		t.Fatalf("unexpected record defaults: %+v", store.rec)
	}
	if store.rec.DeliveryAddress != "To be confirmed" {
		t.Fatalf("unexpected address %q", store.rec.DeliveryAddress)
	}
	if store.rec.Items[0].ProductName != "Basmati Rice" {
		t.Fatalf("lines must carry the catalog name, got %q", store.rec.Items[0].ProductName)
	}
}

func TestCommitStoreFailure(t *testing.T) {
	store := &stubStore{err: errors.New("insert failed")}
	c := NewCommitter(store, nil)

	_, _, err := c.Commit(context.Background(), voiceSession())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonOrderCommit) {
		t.Fatalf("expected commit reason, got %v", err)
	}
}

func TestCommitRejectsEmptyCart(t *testing.T) {
	store := &stubStore{id: "row-1"}
	c := NewCommitter(store, nil)

	sess := voiceSession()
	sess.Items = []intake.ParsedItem{{ProductName: "quinoa", Matched: false}}
	if _, _, err := c.Commit(context.Background(), sess); err == nil {
		t.Fatal("expected error for a cart with no matched items")
	}
	if store.rec.OrderNumber != "" {
		t.Fatal("store must not be reached for an empty cart")
	}
}

func TestOrderNumberPerChannel(t *testing.T) {
	tg := &intake.Session{Channel: intake.ChannelTelegram, UserID: "987654321", Key: "987654321"}
	if got := OrderNumber(tg); got != "TG-54321" {
		t.Fatalf("unexpected telegram number %q", got)
	}
	wa := &intake.Session{Channel: intake.ChannelWhatsApp, Key: "wamid.abcdef"}
	if got := OrderNumber(wa); got != "OR-ABCDEF" {
		t.Fatalf("unexpected fallback number %q", got)
	}
}

func TestDeliveryAddressDefaults(t *testing.T) {
	tg := &intake.Session{Channel: intake.ChannelTelegram, UserID: "42"}
	if got := BuildRecord(tg).DeliveryAddress; got != "To be confirmed via chat" {
		t.Fatalf("unexpected chat default %q", got)
	}
	v := voiceSession()
	v.DeliveryAddress = "42, MG Road, Sector 15"
	if got := BuildRecord(v).DeliveryAddress; got != "42, MG Road, Sector 15" {
		t.Fatalf("collected address must win, got %q", got)
	}
}
