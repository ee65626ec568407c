// Package twilio serves the voice intake channel: Twilio webhooks in,
// TwiML out. Speech recognition happens on Twilio's side; handlers see
// transcribed text and DTMF digits only.
package twilio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	twilioclient "github.com/twilio/twilio-go/client"

	"github.com/storestorm/intake/pkg/errorsx"
	"github.com/storestorm/intake/pkg/intake"
	"github.com/storestorm/intake/pkg/redact"
)

type Channel struct {
	cfg      Config
	machine  *intake.Machine
	sessions intake.SessionStore
	log      *slog.Logger

	server   *http.Server
	draining atomic.Bool
}

func New(cfg Config, machine *intake.Machine, sessions intake.SessionStore, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{
		cfg:      cfg.withDefaults(),
		machine:  machine,
		sessions: sessions,
		log:      log,
	}
}

func (c *Channel) Name() string { return "twilio_voice" }

// WebhookURL reports the voice entry point for wiring the Twilio number.
func (c *Channel) WebhookURL() string {
	if c.cfg.PublicURL != "" {
		return "https://" + trimScheme(c.cfg.PublicURL) + c.cfg.VoicePath
	}
	addr := c.cfg.ServerAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + c.cfg.VoicePath
}

func (c *Channel) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc(c.cfg.VoicePath, c.handleVoice)
	mux.HandleFunc(c.cfg.GatherPath, c.handleGather)
	mux.HandleFunc(c.cfg.ConfirmPath, c.handleConfirm)
	mux.HandleFunc(c.cfg.AddressPath, c.handleAddress)
	mux.HandleFunc(c.cfg.StatusPath, c.handleStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c.server = &http.Server{
		Addr:              c.cfg.ServerAddr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	go func() {
		<-ctx.Done()
		_ = c.server.Close()
	}()
	go func() {
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error("voice_server_error", "error", err.Error())
		}
	}()
	c.log.Info("voice_channel_started", "addr", c.cfg.ServerAddr, "webhook_url", c.WebhookURL())
	return nil
}

func (c *Channel) Stop() error {
	c.draining.Store(true)
	if c.server != nil {
		return c.server.Close()
	}
	return nil
}

// handleVoice answers the initial call: create the session and greet.
func (c *Channel) handleVoice(w http.ResponseWriter, r *http.Request) {
	form, ok := c.acceptWebhook(w, r)
	if !ok {
		return
	}
	callSID := form("CallSid")
	caller := form("From")
	if callSID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	sess, created := c.sessions.GetOrCreate(intake.ChannelVoice, callSID, caller, c.cfg.ShopID)
	out := c.machine.Handle(r.Context(), sess, intake.StartEvent{})

	c.log.Info("incoming_call",
		"call_sid", callSID,
		"from", redact.Text(caller),
		"shop", c.cfg.ShopName,
		"new_session", created,
	)
	c.writeTwiML(w, c.render(out))
}

// handleGather receives transcribed order speech.
func (c *Channel) handleGather(w http.ResponseWriter, r *http.Request) {
	form, ok := c.acceptWebhook(w, r)
	if !ok {
		return
	}
	callSID := form("CallSid")
	speech := strings.TrimSpace(form("SpeechResult"))
	if callSID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	sess, _ := c.sessions.GetOrCreate(intake.ChannelVoice, callSID, form("From"), c.cfg.ShopID)
	if speech == "" {
		// Nothing heard; replay the greeting.
		c.writeTwiML(w, greetingTwiML(c.cfg.ShopName, c.cfg.GatherPath, c.cfg.VoicePath))
		return
	}

	c.log.Info("speech_received", "call_sid", callSID, "text", redact.Text(speech))
	out := c.machine.Handle(r.Context(), sess, intake.TextEvent{Text: speech})
	c.writeTwiML(w, c.render(out))
}

// handleConfirm resolves the yes/no prompt: keypad first, speech second.
func (c *Channel) handleConfirm(w http.ResponseWriter, r *http.Request) {
	form, ok := c.acceptWebhook(w, r)
	if !ok {
		return
	}
	callSID := form("CallSid")
	if callSID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}
	sess, found := c.sessions.Get(intake.ChannelVoice, callSID)
	if !found {
		c.writeTwiML(w, errorTwiML(""))
		return
	}

	var out intake.Output
	if digits := strings.TrimSpace(form("Digits")); digits != "" {
		out = c.machine.Handle(r.Context(), sess, intake.DTMFEvent{Digits: digits})
	} else {
		out = c.machine.Handle(r.Context(), sess, intake.TextEvent{Text: form("SpeechResult")})
	}
	c.writeTwiML(w, c.render(out))
}

// handleAddress receives the spoken delivery address.
func (c *Channel) handleAddress(w http.ResponseWriter, r *http.Request) {
	form, ok := c.acceptWebhook(w, r)
	if !ok {
		return
	}
	callSID := form("CallSid")
	sess, found := c.sessions.Get(intake.ChannelVoice, callSID)
	if !found {
		c.writeTwiML(w, errorTwiML(""))
		return
	}
	speech := strings.TrimSpace(form("SpeechResult"))
	if speech == "" {
		c.writeTwiML(w, collectAddressTwiML(c.cfg.AddressPath))
		return
	}
	out := c.machine.Handle(r.Context(), sess, intake.TextEvent{Text: speech})
	c.writeTwiML(w, c.render(out))
}

// handleStatus drops the session once Twilio reports the call over.
func (c *Channel) handleStatus(w http.ResponseWriter, r *http.Request) {
	form, ok := c.acceptWebhook(w, r)
	if !ok {
		return
	}
	callSID := form("CallSid")
	status := strings.ToLower(strings.TrimSpace(form("CallStatus")))
	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		if callSID != "" {
			c.sessions.Delete(intake.ChannelVoice, callSID)
			c.log.Info("call_ended", "call_sid", callSID, "status", status)
		}
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("OK"))
}

// acceptWebhook rejects non-POSTs and bad signatures, then parses the form.
// The returned accessor reads POST form values.
func (c *Channel) acceptWebhook(w http.ResponseWriter, r *http.Request) (func(string) string, bool) {
	if c.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return nil, false
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil, false
	}
	if c.cfg.AuthToken != "" && !c.validateRequest(r) {
		c.log.Warn("twilio_invalid_signature",
			"path", r.URL.Path,
			"reason_code", string(errorsx.ReasonWebhookInvalidSignature))
		w.WriteHeader(http.StatusForbidden)
		return nil, false
	}
	if err := r.ParseForm(); err != nil {
		c.log.Warn("twilio_malformed_form",
			"path", r.URL.Path,
			"reason_code", string(errorsx.ReasonWebhookMalformed))
		http.Error(w, "bad form", http.StatusBadRequest)
		return nil, false
	}
	return r.PostFormValue, true
}

func (c *Channel) validateRequest(r *http.Request) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return false
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	validator := twilioclient.NewRequestValidator(c.cfg.AuthToken)
	return validator.ValidateBody(c.requestURL(r), body, signature)
}

func (c *Channel) requestURL(r *http.Request) string {
	if c.cfg.PublicURL != "" {
		base := strings.TrimRight(c.cfg.PublicURL, "/")
		return base + r.URL.RequestURI()
	}
	scheme := r.URL.Scheme
	if scheme == "" {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		} else {
			scheme = "https"
		}
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// render maps the machine's decision onto TwiML.
func (c *Channel) render(out intake.Output) string {
	switch out.Kind {
	case intake.OutGreeting:
		return greetingTwiML(c.cfg.ShopName, c.cfg.GatherPath, c.cfg.VoicePath)
	case intake.OutReprompt:
		return repromptTwiML(c.cfg.GatherPath)
	case intake.OutEmptyCart:
		return emptyCartTwiML(c.cfg.GatherPath)
	case intake.OutItemsAdded:
		// An all-unmatched turn must not voice the empty-cart sentinel as
		// if something matched.
		matchedSummary := ""
		if len(out.Matched) > 0 {
			matchedSummary = intake.Summary(out.Matched, "hi")
		}
		return itemsAddedTwiML(matchedSummary, productNames(out.Unmatched), c.cfg.GatherPath)
	case intake.OutConfirm:
		return confirmTwiML(out.Summary, out.Total, c.cfg.ConfirmPath)
	case intake.OutAskAddress:
		return collectAddressTwiML(c.cfg.AddressPath)
	case intake.OutOrderPlaced:
		return orderPlacedTwiML(out.OrderNumber)
	case intake.OutOrderCancelled:
		return orderCancelledTwiML()
	case intake.OutCommitFailed:
		return errorTwiML("Kuch galat ho gaya. Kripya thodi der baad dubara call karein.")
	default:
		return errorTwiML("")
	}
}

func (c *Channel) writeTwiML(w http.ResponseWriter, twiml string) {
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(twiml))
}

func productNames(items []intake.ParsedItem) []string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.ProductName)
	}
	return names
}

func trimScheme(v string) string {
	v = strings.TrimPrefix(v, "https://")
	v = strings.TrimPrefix(v, "http://")
	return strings.TrimRight(v, "/")
}
