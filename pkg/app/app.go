// Package app assembles the intake pipeline from configuration: LLM
// provider, catalog and order storage, session store, state machine, and
// the enabled channels.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/storestorm/intake/pkg/catalog"
	"github.com/storestorm/intake/pkg/channels/telegram"
	"github.com/storestorm/intake/pkg/channels/twilio"
	"github.com/storestorm/intake/pkg/configutil"
	"github.com/storestorm/intake/pkg/extract"
	"github.com/storestorm/intake/pkg/intake"
	"github.com/storestorm/intake/pkg/llm"
	"github.com/storestorm/intake/pkg/logging"
	"github.com/storestorm/intake/pkg/metrics"
	"github.com/storestorm/intake/pkg/orders"
	"github.com/storestorm/intake/pkg/providers/fastrouter"
	"github.com/storestorm/intake/pkg/providers/mock"
	"github.com/storestorm/intake/pkg/resilience"
	"github.com/storestorm/intake/pkg/rowstore"
	"github.com/storestorm/intake/pkg/session"
)

type fastrouterSettings struct {
	APIKey            string `mapstructure:"api_key"`
	Model             string `mapstructure:"model"`
	UseCircuitBreaker *bool  `mapstructure:"use_circuit_breaker"`
	CircuitThreshold  int    `mapstructure:"circuit_threshold"`
	CircuitCooldownMS int    `mapstructure:"circuit_cooldown_ms"`
}

type mockLLMSettings struct {
	Responses []string `mapstructure:"responses"`
}

// channel is the common surface of the intake channels.
type channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// App owns every long-lived component and their shutdown order.
type App struct {
	cfg      Config
	log      *slog.Logger
	db       *sql.DB
	store    *session.MemoryStore
	machine  *intake.Machine
	channels []channel

	obs         metrics.Observer
	metricsFile *os.File
	cancelSweep context.CancelFunc
}

func New(cfg Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, log: log, obs: metrics.NoopObserver{}}

	if path := cfg.Observability.MetricsPath; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open metrics file: %w", err)
		}
		a.metricsFile = f
		a.obs = metrics.NewJSONLObserver(f)
	}

	db, err := rowstore.Open(context.Background(), cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.db = db

	adapter, err := buildLLM(cfg.LLM, a.obs)
	if err != nil {
		db.Close()
		return nil, err
	}

	extractor := extract.NewExtractor(adapter, logging.NewComponentLogger(log, "extract"))
	matcher := catalog.NewMatcher(rowstore.NewProductStore(db), logging.NewComponentLogger(log, "catalog"))
	if cfg.Intake.MatchThreshold > 0 {
		matcher.SetThreshold(cfg.Intake.MatchThreshold)
	}
	committer := orders.NewCommitter(rowstore.NewOrderStore(db), logging.NewComponentLogger(log, "orders"))

	a.store = session.NewMemoryStore()
	if cfg.Sessions.TTLMinutes > 0 {
		a.store.TTL = time.Duration(cfg.Sessions.TTLMinutes) * time.Minute
	}

	a.machine = intake.NewMachine(extractor, matcher, committer, a.store, logging.NewComponentLogger(log, "intake"))
	a.machine.CollectAddress = cfg.Intake.CollectAddress
	a.machine.SetObserver(a.obs)

	if cfg.Voice.Enabled {
		var vcfg twilio.Config
		if err := decodeChannelSettings("voice.settings", cfg.Voice.Settings, voiceSchema, &vcfg); err != nil {
			db.Close()
			return nil, err
		}
		vcfg.ShopID = cfg.Shop.ID
		vcfg.ShopName = cfg.Shop.Name
		a.channels = append(a.channels,
			twilio.New(vcfg, a.machine, a.store, logging.NewComponentLogger(log, "voice")))
	}

	if cfg.Chat.Enabled {
		var ccfg telegram.Config
		if err := decodeChannelSettings("chat.settings", cfg.Chat.Settings, chatSchema, &ccfg); err != nil {
			db.Close()
			return nil, err
		}
		if err := configutil.RequireString(ccfg.BotToken, "chat.settings.bot_token"); err != nil {
			db.Close()
			return nil, err
		}
		ccfg.ShopID = cfg.Shop.ID
		ccfg.ShopName = cfg.Shop.Name
		chat, err := telegram.New(ccfg, a.machine, a.store, logging.NewComponentLogger(log, "chat"))
		if err != nil {
			db.Close()
			return nil, err
		}
		a.channels = append(a.channels, chat)
	}

	return a, nil
}

var voiceSchema = configutil.Schema{
	Optional: []string{
		"server_addr", "public_url", "auth_token", "account_sid",
		"voice_path", "gather_path", "confirm_path", "address_path", "status_path",
	},
}

var chatSchema = configutil.Schema{
	Required: []string{"bot_token"},
	Optional: []string{"poll_timeout"},
}

func decodeChannelSettings(path string, settings map[string]any, schema configutil.Schema, out any) error {
	if err := configutil.ValidateSettings(settings, schema); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := configutil.DecodeSettings(settings, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func buildLLM(cfg VendorConfig, obs metrics.Observer) (llm.Adapter, error) {
	switch cfg.Provider {
	case "fastrouter":
		if err := configutil.ValidateSettings(cfg.Settings, configutil.Schema{
			Required: []string{"api_key"},
			Optional: []string{"model", "use_circuit_breaker", "circuit_threshold", "circuit_cooldown_ms"},
		}); err != nil {
			return nil, fmt.Errorf("llm.settings: %w", err)
		}
		var settings fastrouterSettings
		if err := configutil.DecodeSettings(cfg.Settings, &settings); err != nil {
			return nil, fmt.Errorf("llm.settings: %w", err)
		}
		if err := configutil.RequireString(settings.APIKey, "llm.settings.api_key"); err != nil {
			return nil, err
		}
		var adapter llm.Adapter = fastrouter.NewAdapter(settings.APIKey, settings.Model)
		if settings.UseCircuitBreaker == nil || *settings.UseCircuitBreaker {
			threshold := settings.CircuitThreshold
			if threshold <= 0 {
				threshold = 3
			}
			cooldown := time.Duration(settings.CircuitCooldownMS) * time.Millisecond
			if cooldown <= 0 {
				cooldown = 30 * time.Second
			}
			cb := llm.NewCircuitBreakerAdapter(adapter, resilience.NewCircuitBreaker(threshold, cooldown))
			cb.SetObserver(obs)
			adapter = cb
		}
		return adapter, nil

	case "mock":
		var settings mockLLMSettings
		if err := configutil.DecodeSettings(cfg.Settings, &settings); err != nil {
			return nil, fmt.Errorf("llm.settings: %w", err)
		}
		return mock.NewLLMAdapter(settings.Responses...), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// Start brings up every channel and the session sweeper.
func (a *App) Start(ctx context.Context) error {
	for _, ch := range a.channels {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", ch.Name(), err)
		}
		a.log.Info("channel_started", "channel", ch.Name())
	}
	a.startSweeper(ctx)
	return nil
}

func (a *App) startSweeper(ctx context.Context) {
	if a.store.TTL <= 0 {
		return
	}
	interval := time.Duration(a.cfg.Sessions.SweepIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	a.cancelSweep = cancel
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := a.store.SweepExpired(); n > 0 {
					a.log.Info("sessions_swept", "removed", n)
				}
			}
		}
	}()
}

// Drain stops channels first so no new webhook turns arrive, then releases
// storage.
func (a *App) Drain() error {
	if a.cancelSweep != nil {
		a.cancelSweep()
	}
	for _, ch := range a.channels {
		if err := ch.Stop(); err != nil {
			a.log.Warn("channel_stop_failed", "channel", ch.Name(), "error", err.Error())
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.metricsFile != nil {
		_ = a.metricsFile.Close()
	}
	return nil
}
