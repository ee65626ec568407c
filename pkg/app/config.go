package app

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// VendorConfig names a provider and carries its free-form settings block.
type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

// ChannelConfig is one intake channel: enabled flag plus settings decoded
// by the channel package itself.
type ChannelConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Settings map[string]any `mapstructure:"settings"`
}

type ShopConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type SessionsConfig struct {
	TTLMinutes           int `mapstructure:"ttl_minutes"`
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
}

type IntakeConfig struct {
	CollectAddress bool    `mapstructure:"collect_address"`
	MatchThreshold float64 `mapstructure:"match_threshold"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

type ObservabilityConfig struct {
	MetricsPath string `mapstructure:"metrics_path"`
}

type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	Shop     ShopConfig     `mapstructure:"shop"`
	LLM      VendorConfig   `mapstructure:"llm"`
	Database DatabaseConfig `mapstructure:"database"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Intake   IntakeConfig   `mapstructure:"intake"`

	Voice ChannelConfig `mapstructure:"voice"`
	Chat  ChannelConfig `mapstructure:"chat"`

	Privacy       PrivacyConfig       `mapstructure:"privacy"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("shop.name", "Storm Mart")
	v.SetDefault("llm.provider", "fastrouter")
	v.SetDefault("sessions.ttl_minutes", 0)
	v.SetDefault("sessions.sweep_interval_minutes", 5)
	v.SetDefault("intake.collect_address", false)
	v.SetDefault("intake.match_threshold", 0.6)
	v.SetDefault("voice.enabled", true)
	v.SetDefault("chat.enabled", false)
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("observability.metrics_path", "")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Shop.ID) == "" {
		return fmt.Errorf("shop.id is required")
	}
	if strings.TrimSpace(c.LLM.Provider) == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if !c.Voice.Enabled && !c.Chat.Enabled {
		return fmt.Errorf("at least one channel must be enabled")
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	return nil
}

// expandEnvStrings substitutes ${VAR} references so secrets can live in the
// environment instead of the config file.
func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.LLM.Settings = expandSettings(cfg.LLM.Settings)
	cfg.Voice.Settings = expandSettings(cfg.Voice.Settings)
	cfg.Chat.Settings = expandSettings(cfg.Chat.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	}
}
