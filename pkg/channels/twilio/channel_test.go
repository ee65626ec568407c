package twilio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/storestorm/intake/pkg/intake"
	"github.com/storestorm/intake/pkg/session"
)

type fixedExtractor struct {
	items []intake.ParsedItem
}

func (f fixedExtractor) ExtractText(ctx context.Context, text string) []intake.ParsedItem {
	return f.items
}

func (f fixedExtractor) ExtractImage(ctx context.Context, data []byte, mime string) []intake.ParsedItem {
	return f.items
}

type passMatcher struct{}

func (passMatcher) Match(ctx context.Context, items []intake.ParsedItem, shopID string) ([]intake.ParsedItem, []intake.ParsedItem) {
	matched := make([]intake.ParsedItem, len(items))
	for i, it := range items {
		it.Matched = true
		it.MatchedName = it.ProductName
		it.Price = 100
		it.Confidence = 1
		matched[i] = it
	}
	return matched, nil
}

type stubCommitter struct {
	err    error
	called int
}

func (s *stubCommitter) Commit(ctx context.Context, sess *intake.Session) (string, string, error) {
	s.called++
	if s.err != nil {
		return "", "", s.err
	}
	return "row-1", "VO-ABC123", nil
}

func newTestChannel(t *testing.T, committer intake.Committer) (*Channel, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	extractor := fixedExtractor{items: []intake.ParsedItem{
		{RawText: "2 kg rice", ProductName: "rice", Quantity: 2, Unit: "kg"},
	}}
	machine := intake.NewMachine(extractor, passMatcher{}, committer, store, nil)
	ch := New(Config{ShopID: "shop-1", ShopName: "Storm Mart"}, machine, store, nil)
	return ch, store
}

func postForm(t *testing.T, handler http.HandlerFunc, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "http://example.com/twilio/any", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// rejectMatcher matches nothing, leaving every item unmatched.
type rejectMatcher struct{}

func (rejectMatcher) Match(ctx context.Context, items []intake.ParsedItem, shopID string) ([]intake.ParsedItem, []intake.ParsedItem) {
	return nil, items
}

func TestVoiceWebhookGreetsAndCreatesSession(t *testing.T) {
	ch, store := newTestChannel(t, &stubCommitter{})

	rec := postForm(t, ch.handleVoice, url.Values{
		"CallSid": {"CA123"},
		"From":    {"+919876543210"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<Gather") || !strings.Contains(body, "Storm Mart") {
		t.Fatalf("expected greeting gather, got %q", body)
	}
	if sess, ok := store.Get(intake.ChannelVoice, "CA123"); !ok || sess.State != intake.StateCollecting {
		t.Fatalf("expected collecting session, got %+v", sess)
	}
}

func TestGatherAddsItemsAndPromptsForMore(t *testing.T) {
	ch, _ := newTestChannel(t, &stubCommitter{})
	postForm(t, ch.handleVoice, url.Values{"CallSid": {"CA123"}, "From": {"+91"}})

	rec := postForm(t, ch.handleGather, url.Values{
		"CallSid":      {"CA123"},
		"From":         {"+91"},
		"SpeechResult": {"2 kilo chawal"},
	})
	body := rec.Body.String()
	if !strings.Contains(body, "mil gaya") || !strings.Contains(body, "<Gather") {
		t.Fatalf("expected items-added prompt, got %q", body)
	}
}

func TestGatherAllUnmatchedAsksForSomethingElse(t *testing.T) {
	store := session.NewMemoryStore()
	extractor := fixedExtractor{items: []intake.ParsedItem{
		{RawText: "quinoa", ProductName: "quinoa", Quantity: 1, Unit: "pcs"},
	}}
	machine := intake.NewMachine(extractor, rejectMatcher{}, &stubCommitter{}, store, nil)
	ch := New(Config{ShopID: "shop-1", ShopName: "Storm Mart"}, machine, store, nil)
	postForm(t, ch.handleVoice, url.Values{"CallSid": {"CA123"}, "From": {"+91"}})

	rec := postForm(t, ch.handleGather, url.Values{
		"CallSid":      {"CA123"},
		"From":         {"+91"},
		"SpeechResult": {"quinoa chahiye"},
	})
	body := rec.Body.String()
	if !strings.Contains(body, "quinoa hamare paas nahi hai") {
		t.Fatalf("expected unmatched apology, got %q", body)
	}
	if !strings.Contains(body, "Kripya kuch aur bataiye") {
		t.Fatalf("expected ask-for-something-else prompt, got %q", body)
	}
	if strings.Contains(body, "Koi item nahi") || strings.Contains(body, "mil gaya") {
		t.Fatalf("empty-cart sentinel leaked into the prompt: %q", body)
	}
}

func TestDoneThenDigitOneCommits(t *testing.T) {
	committer := &stubCommitter{}
	ch, store := newTestChannel(t, committer)
	postForm(t, ch.handleVoice, url.Values{"CallSid": {"CA123"}, "From": {"+91"}})
	postForm(t, ch.handleGather, url.Values{"CallSid": {"CA123"}, "From": {"+91"}, "SpeechResult": {"2 kilo chawal"}})

	rec := postForm(t, ch.handleGather, url.Values{"CallSid": {"CA123"}, "From": {"+91"}, "SpeechResult": {"bas"}})
	if !strings.Contains(rec.Body.String(), "Confirm karne ke liye 1") {
		t.Fatalf("expected confirmation prompt, got %q", rec.Body.String())
	}

	rec = postForm(t, ch.handleConfirm, url.Values{"CallSid": {"CA123"}, "Digits": {"1"}})
	body := rec.Body.String()
	if committer.called != 1 {
		t.Fatalf("expected one commit, got %d", committer.called)
	}
	if !strings.Contains(body, "VO-ABC123") || !strings.Contains(body, "<Hangup/>") {
		t.Fatalf("expected success twiml, got %q", body)
	}
	if _, ok := store.Get(intake.ChannelVoice, "CA123"); ok {
		t.Fatal("session must be dropped after commit")
	}
}

func TestDigitTwoCancels(t *testing.T) {
	ch, store := newTestChannel(t, &stubCommitter{})
	postForm(t, ch.handleVoice, url.Values{"CallSid": {"CA123"}, "From": {"+91"}})
	postForm(t, ch.handleGather, url.Values{"CallSid": {"CA123"}, "From": {"+91"}, "SpeechResult": {"2 kilo chawal"}})
	postForm(t, ch.handleGather, url.Values{"CallSid": {"CA123"}, "From": {"+91"}, "SpeechResult": {"bas"}})

	rec := postForm(t, ch.handleConfirm, url.Values{"CallSid": {"CA123"}, "Digits": {"2"}})
	if !strings.Contains(rec.Body.String(), "cancel kar diya gaya") {
		t.Fatalf("expected cancellation twiml, got %q", rec.Body.String())
	}
	if _, ok := store.Get(intake.ChannelVoice, "CA123"); ok {
		t.Fatal("session must be dropped after cancel")
	}
}

func TestCommitFailureKeepsSession(t *testing.T) {
	committer := &stubCommitter{err: errors.New("db down")}
	ch, store := newTestChannel(t, committer)
	postForm(t, ch.handleVoice, url.Values{"CallSid": {"CA123"}, "From": {"+91"}})
	postForm(t, ch.handleGather, url.Values{"CallSid": {"CA123"}, "From": {"+91"}, "SpeechResult": {"2 kilo chawal"}})
	postForm(t, ch.handleGather, url.Values{"CallSid": {"CA123"}, "From": {"+91"}, "SpeechResult": {"bas"}})

	postForm(t, ch.handleConfirm, url.Values{"CallSid": {"CA123"}, "Digits": {"1"}})
	sess, ok := store.Get(intake.ChannelVoice, "CA123")
	if !ok {
		t.Fatal("session must survive a failed commit")
	}
	if sess.State != intake.StateConfirming {
		t.Fatalf("expected confirming after failed commit, got %v", sess.State)
	}
	if len(sess.Items) != 1 {
		t.Fatalf("cart must be preserved, got %d items", len(sess.Items))
	}
}

func TestRejectsMissingSignatureWhenTokenConfigured(t *testing.T) {
	store := session.NewMemoryStore()
	machine := intake.NewMachine(fixedExtractor{}, passMatcher{}, &stubCommitter{}, store, nil)
	ch := New(Config{AuthToken: "secret", ShopID: "shop-1"}, machine, store, nil)

	rec := postForm(t, ch.handleVoice, url.Values{"CallSid": {"CA123"}, "From": {"+91"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestStatusCallbackDropsSession(t *testing.T) {
	ch, store := newTestChannel(t, &stubCommitter{})
	postForm(t, ch.handleVoice, url.Values{"CallSid": {"CA123"}, "From": {"+91"}})

	rec := postForm(t, ch.handleStatus, url.Values{"CallSid": {"CA123"}, "CallStatus": {"completed"}})
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected status response %d %q", rec.Code, rec.Body.String())
	}
	if _, ok := store.Get(intake.ChannelVoice, "CA123"); ok {
		t.Fatal("session must be dropped on call completion")
	}
}
