// Package telegram serves the chat intake channel over the Telegram Bot
// API: typed orders, shopping-list photos, and inline-button confirmation.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/storestorm/intake/pkg/errorsx"
	"github.com/storestorm/intake/pkg/intake"
	"github.com/storestorm/intake/pkg/resilience"
)

// Config drives the chat channel. PollTimeout is the long-poll window in
// seconds.
type Config struct {
	BotToken    string `mapstructure:"bot_token"`
	ShopID      string `mapstructure:"shop_id"`
	ShopName    string `mapstructure:"shop_name"`
	PollTimeout int    `mapstructure:"poll_timeout"`
}

func (c Config) withDefaults() Config {
	if c.ShopName == "" {
		c.ShopName = "Storm Mart"
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 30
	}
	return c
}

// botAPI is the slice of *tgbotapi.BotAPI the channel uses; tests install
// a fake.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Channel struct {
	cfg      Config
	bot      botAPI
	machine  *intake.Machine
	sessions intake.SessionStore
	log      *slog.Logger
	retry    resilience.RetryPolicy
	httpc    *http.Client
	token    string
	fileBase string
}

func New(cfg Config, machine *intake.Machine, sessions intake.SessionStore, log *slog.Logger) (*Channel, error) {
	cfg = cfg.withDefaults()
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect bot: %w", err)
	}
	ch := newWithBot(cfg, bot, machine, sessions, log)
	ch.log.Info("chat_channel_ready", "bot", bot.Self.UserName)
	return ch, nil
}

func newWithBot(cfg Config, bot botAPI, machine *intake.Machine, sessions intake.SessionStore, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{
		cfg:      cfg.withDefaults(),
		bot:      bot,
		machine:  machine,
		sessions: sessions,
		log:      log,
		retry:    resilience.NewRetryPolicy(2, 300*time.Millisecond),
		httpc:    &http.Client{Timeout: 30 * time.Second},
		token:    cfg.BotToken,
		fileBase: "https://api.telegram.org/file/bot",
	}
}

func (c *Channel) Name() string { return "telegram_chat" }

// Start consumes bot updates until the context ends.
func (c *Channel) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.cfg.PollTimeout
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		c.bot.StopReceivingUpdates()
	}()
	go func() {
		for upd := range updates {
			c.handleUpdate(ctx, upd)
		}
	}()
	return nil
}

func (c *Channel) Stop() error {
	c.bot.StopReceivingUpdates()
	return nil
}

func (c *Channel) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil && len(upd.Message.Photo) > 0:
		c.handlePhoto(ctx, upd.Message)
	case upd.Message != nil && upd.Message.Text != "":
		c.handleText(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		c.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (c *Channel) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := strconv.FormatInt(msg.From.ID, 10)
	sess, _ := c.sessions.GetOrCreate(intake.ChannelTelegram, userID, userID, c.cfg.ShopID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			c.reply(ctx, chatID, render(c.machine.Handle(ctx, sess, intake.StartEvent{}), c.cfg.ShopName))
		case "cancel":
			c.reply(ctx, chatID, render(c.machine.Handle(ctx, sess, intake.CancelEvent{}), c.cfg.ShopName))
		case "status":
			c.reply(ctx, chatID, render(c.machine.Status(sess), c.cfg.ShopName))
		default:
			c.reply(ctx, chatID, reply{text: "🤔 Unknown command. Send /start to begin an order."})
		}
		return
	}

	c.log.Info("chat_message", "user_id", userID, "len", len(msg.Text))
	out := c.machine.Handle(ctx, sess, intake.TextEvent{Text: msg.Text})
	c.reply(ctx, chatID, render(out, c.cfg.ShopName))
}

// handlePhoto downloads the best photo variant and runs it through the
// vision extraction path.
func (c *Channel) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := strconv.FormatInt(msg.From.ID, 10)
	sess, _ := c.sessions.GetOrCreate(intake.ChannelTelegram, userID, userID, c.cfg.ShopID)

	c.reply(ctx, chatID, reply{text: "🔍 Analyzing your shopping list image..."})

	data, err := c.downloadPhoto(ctx, msg.Photo)
	if err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonMediaDownload)
		c.log.Error("photo_download_failed",
			"user_id", userID,
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error())
		c.reply(ctx, chatID, reply{text: "❌ Could not download the image. Please try again or type your order."})
		return
	}

	out := c.machine.Handle(ctx, sess, intake.ImageEvent{Data: data, Mime: "image/jpeg"})
	if out.Kind == intake.OutReprompt {
		c.reply(ctx, chatID, reply{text: "🤔 I couldn't find any items in that image.\n" +
			"Please send a clear photo of your shopping list, or type your order."})
		return
	}
	c.reply(ctx, chatID, render(out, c.cfg.ShopName))
}

func (c *Channel) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Ack first so the button stops spinning.
	if _, err := c.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		c.log.Warn("callback_ack_failed", "error", err.Error())
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	userID := strconv.FormatInt(cb.From.ID, 10)

	sess, found := c.sessions.Get(intake.ChannelTelegram, userID)
	if !found {
		c.reply(ctx, chatID, reply{text: "Session expired. Send /start to begin a new order."})
		return
	}

	var action intake.ButtonAction
	switch cb.Data {
	case cbAddMore:
		action = intake.ActionAddMore
	case cbDone:
		action = intake.ActionDone
	case cbConfirm:
		action = intake.ActionConfirm
	case cbCancel:
		action = intake.ActionCancel
	default:
		return
	}
	out := c.machine.Handle(ctx, sess, intake.ButtonEvent{Action: action})
	c.reply(ctx, chatID, render(out, c.cfg.ShopName))
}

// downloadPhoto resolves the largest photo variant to bytes.
func (c *Channel) downloadPhoto(ctx context.Context, photos []tgbotapi.PhotoSize) ([]byte, error) {
	best := photos[0]
	for _, p := range photos[1:] {
		if p.FileSize > best.FileSize {
			best = p
		}
	}

	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: best.FileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	url := c.fileURL(file.FilePath)
	var data []byte
	err = c.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("download status %d", resp.StatusCode)
		}
		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Channel) fileURL(filePath string) string {
	return fmt.Sprintf("%s%s/%s", c.fileBase, c.token, filePath)
}

func (c *Channel) reply(ctx context.Context, chatID int64, r reply) {
	msg := tgbotapi.NewMessage(chatID, r.text)
	msg.ParseMode = tgbotapi.ModeHTML
	if r.markup != nil {
		msg.ReplyMarkup = *r.markup
	}
	err := c.retry.Do(ctx, func() error {
		_, err := c.bot.Send(msg)
		return err
	})
	if err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonChatSend)
		c.log.Error("chat_send_failed",
			"chat_id", chatID,
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error())
	}
}
