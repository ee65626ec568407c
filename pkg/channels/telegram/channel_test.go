package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/storestorm/intake/pkg/intake"
	"github.com/storestorm/intake/pkg/session"
)

type fakeBot struct {
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	filePath string
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error) {
	return tgbotapi.File{FileID: cfg.FileID, FilePath: f.filePath}, nil
}

func (f *fakeBot) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeBot) StopReceivingUpdates() {}

func (f *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return f.sent[len(f.sent)-1].Text
}

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
		it.Price = 50
		it.Confidence = 1
		matched[i] = it
	}
	return matched, nil
}

type stubCommitter struct {
	called int
}

func (s *stubCommitter) Commit(ctx context.Context, sess *intake.Session) (string, string, error) {
	s.called++
	return "row-1", "TG-00042", nil
}

func newTestChannel(t *testing.T) (*Channel, *fakeBot, *session.MemoryStore, *stubCommitter) {
	t.Helper()
	bot := &fakeBot{filePath: "photos/list.jpg"}
	store := session.NewMemoryStore()
	committer := &stubCommitter{}
	extractor := fixedExtractor{items: []intake.ParsedItem{
		{RawText: "2 kg rice", ProductName: "rice", Quantity: 2, Unit: "kg"},
	}}
	machine := intake.NewMachine(extractor, passMatcher{}, committer, store, nil)
	ch := newWithBot(Config{BotToken: "test-token", ShopID: "shop-1", ShopName: "Storm Mart"},
		bot, machine, store, nil)
	return ch, bot, store, committer
}

func commandMessage(text string) *tgbotapi.Message {
	cmdLen := len(text)
	if idx := strings.IndexByte(text, ' '); idx > 0 {
		cmdLen = idx
	}
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42},
		Chat: &tgbotapi.Chat{ID: 42},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: cmdLen},
		},
	}
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42},
		Chat: &tgbotapi.Chat{ID: 42},
		Text: text,
	}
}

func callback(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 42},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}},
		Data:    data,
	}
}

func TestStartCommandGreets(t *testing.T) {
	ch, bot, store, _ := newTestChannel(t)

	ch.handleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage("/start")})
	if !strings.Contains(bot.lastText(t), "Welcome to Storm Mart") {
		t.Fatalf("unexpected greeting %q", bot.lastText(t))
	}
	if sess, ok := store.Get(intake.ChannelTelegram, "42"); !ok || sess.State != intake.StateCollecting {
		t.Fatalf("expected collecting session, got %+v", sess)
	}
}

func TestTextOrderAddsItemsWithKeyboard(t *testing.T) {
	ch, bot, _, _ := newTestChannel(t)
	ch.handleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage("/start")})

	ch.handleUpdate(context.Background(), tgbotapi.Update{Message: textMessage("2 kg chawal")})
	last := bot.sent[len(bot.sent)-1]
	if !strings.Contains(last.Text, "Added to cart") || !strings.Contains(last.Text, "Cart Total") {
		t.Fatalf("unexpected reply %q", last.Text)
	}
	markup, ok := last.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) == 0 {
		t.Fatalf("expected inline keyboard, got %#v", last.ReplyMarkup)
	}
}

func TestButtonFlowConfirmsOrder(t *testing.T) {
	ch, bot, store, committer := newTestChannel(t)
	ctx := context.Background()
	ch.handleUpdate(ctx, tgbotapi.Update{Message: commandMessage("/start")})
	ch.handleUpdate(ctx, tgbotapi.Update{Message: textMessage("2 kg chawal")})

	ch.handleUpdate(ctx, tgbotapi.Update{CallbackQuery: callback(cbDone)})
	if !strings.Contains(bot.lastText(t), "Order Summary") {
		t.Fatalf("expected summary, got %q", bot.lastText(t))
	}

	ch.handleUpdate(ctx, tgbotapi.Update{CallbackQuery: callback(cbConfirm)})
	if committer.called != 1 {
		t.Fatalf("expected one commit, got %d", committer.called)
	}
	if !strings.Contains(bot.lastText(t), "TG-00042") {
		t.Fatalf("expected order number, got %q", bot.lastText(t))
	}
	if _, ok := store.Get(intake.ChannelTelegram, "42"); ok {
		t.Fatal("session must be dropped after commit")
	}
	if len(bot.requests) == 0 {
		t.Fatal("callbacks must be acked")
	}
}

func TestCancelCommandDropsSession(t *testing.T) {
	ch, bot, store, _ := newTestChannel(t)
	ctx := context.Background()
	ch.handleUpdate(ctx, tgbotapi.Update{Message: commandMessage("/start")})
	ch.handleUpdate(ctx, tgbotapi.Update{Message: textMessage("2 kg chawal")})

	ch.handleUpdate(ctx, tgbotapi.Update{Message: commandMessage("/cancel")})
	if !strings.Contains(bot.lastText(t), "Order cancelled") {
		t.Fatalf("unexpected reply %q", bot.lastText(t))
	}
	if _, ok := store.Get(intake.ChannelTelegram, "42"); ok {
		t.Fatal("session must be dropped after cancel")
	}
}

func TestStatusCommandShowsCart(t *testing.T) {
	ch, bot, _, _ := newTestChannel(t)
	ctx := context.Background()

	ch.handleUpdate(ctx, tgbotapi.Update{Message: commandMessage("/status")})
	if !strings.Contains(bot.lastText(t), "cart is empty") {
		t.Fatalf("expected empty cart, got %q", bot.lastText(t))
	}

	ch.handleUpdate(ctx, tgbotapi.Update{Message: textMessage("2 kg chawal")})
	ch.handleUpdate(ctx, tgbotapi.Update{Message: commandMessage("/status")})
	if !strings.Contains(bot.lastText(t), "Current Order") {
		t.Fatalf("expected cart status, got %q", bot.lastText(t))
	}
}

func TestCallbackWithoutSessionAsksForStart(t *testing.T) {
	ch, bot, _, committer := newTestChannel(t)

	ch.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: callback(cbConfirm)})
	if !strings.Contains(bot.lastText(t), "Session expired") {
		t.Fatalf("unexpected reply %q", bot.lastText(t))
	}
	if committer.called != 0 {
		t.Fatal("expired session must not commit")
	}
}

func TestPhotoOrderRunsVisionPath(t *testing.T) {
	ch, bot, _, _ := newTestChannel(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer srv.Close()
	ch.fileBase = srv.URL + "/file/bot"

	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42},
		Chat: &tgbotapi.Chat{ID: 42},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", FileSize: 100},
			{FileID: "large", FileSize: 5000},
		},
	}
	ch.handleUpdate(context.Background(), tgbotapi.Update{Message: msg})

	if len(bot.sent) < 2 {
		t.Fatalf("expected analyzing notice plus result, got %d messages", len(bot.sent))
	}
	if !strings.Contains(bot.sent[0].Text, "Analyzing") {
		t.Fatalf("expected analyzing notice first, got %q", bot.sent[0].Text)
	}
	if !strings.Contains(bot.lastText(t), "Added to cart") {
		t.Fatalf("expected items added, got %q", bot.lastText(t))
	}
}
