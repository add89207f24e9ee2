// Package config loads the stocktracker settings from a yaml file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that override settings,
// e.g. STOCKTRACKER_PRICES_PROVIDER.
const EnvPrefix = "STOCKTRACKER"

// Config holds every setting of the CLI and the server.
type Config struct {
	Currency string       `mapstructure:"currency"`
	Database string       `mapstructure:"database"`
	FX       FXConfig     `mapstructure:"fx"`
	Prices   PricesConfig `mapstructure:"prices"`
	Server   ServerConfig `mapstructure:"server"`
	Log      LogConfig    `mapstructure:"log"`
}

type FXConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	LiveTTL    time.Duration `mapstructure:"live_ttl"`
	Currencies []string      `mapstructure:"currencies"`
}

type PricesConfig struct {
	Provider      string        `mapstructure:"provider"` // yahoo or eodhd
	BaseURL       string        `mapstructure:"base_url"` // empty for the provider default
	APIKey        string        `mapstructure:"api_key"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	FailureWindow time.Duration `mapstructure:"failure_window"`
	DailyQuota    int           `mapstructure:"daily_quota"` // 0 is unlimited
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("currency", "CAD")
	v.SetDefault("database", "stocktracker.json")

	v.SetDefault("fx.base_url", "https://api.frankfurter.app")
	v.SetDefault("fx.live_ttl", time.Hour)
	v.SetDefault("fx.currencies", []string{"CAD", "GBP", "USD", "EUR", "AUD", "CHF"})

	v.SetDefault("prices.provider", "yahoo")
	v.SetDefault("prices.base_url", "")
	v.SetDefault("prices.api_key", "")
	v.SetDefault("prices.cache_ttl", 15*time.Minute)
	v.SetDefault("prices.failure_window", 5*time.Minute)
	v.SetDefault("prices.daily_quota", 0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads the settings. When path is empty stocktracker.yaml is searched in the
// working directory then in ~/.stocktracker, and a missing file is not an error.
// Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("stocktracker")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".stocktracker"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Prices.Provider {
	case "yahoo", "eodhd":
	default:
		return fmt.Errorf("unknown price provider %q", c.Prices.Provider)
	}
	if c.Prices.DailyQuota < 0 {
		return fmt.Errorf("daily quota must not be negative, got %d", c.Prices.DailyQuota)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// LogLevel returns the configured zerolog level.
func (c *Config) LogLevel() zerolog.Level {
	l, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
