// Package config loads and validates service configuration from the
// environment and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full service configuration. Everything here is injected;
// the extraction logic never hard-codes hosts, TTLs or timeouts.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	RedisAddr  string `mapstructure:"redis_addr" validate:"required"`

	// Upstream site.
	UpstreamHost    string   `mapstructure:"upstream_host" validate:"required"`
	MobileMarker    string   `mapstructure:"mobile_marker" validate:"required"`
	CandidateURLs   []string `mapstructure:"candidate_urls" validate:"min=1,dive,url"`
	ForcedMobileURL string   `mapstructure:"forced_mobile_url" validate:"required,url"`
	Origin          string   `mapstructure:"origin" validate:"required,url"`

	// Provider catalog.
	DefaultProvider string `mapstructure:"default_provider" validate:"required"`
	ProvidersFile   string `mapstructure:"providers_file"`

	// Cache TTLs. FailureTTL bounds how often a broken upstream is retried.
	CacheTTL   time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	FailureTTL time.Duration `mapstructure:"failure_ttl" validate:"gt=0"`
	LocalTTL   time.Duration `mapstructure:"local_ttl" validate:"gt=0"`

	// Scrape timing.
	ScrapeTimeout time.Duration `mapstructure:"scrape_timeout" validate:"gt=0"`
	NavTimeout    time.Duration `mapstructure:"nav_timeout" validate:"gt=0"`
	SettleWait    time.Duration `mapstructure:"settle_wait" validate:"gt=0"`
	ContainerWait time.Duration `mapstructure:"container_wait" validate:"gt=0"`

	// Browser.
	Headless  bool   `mapstructure:"headless"`
	UserAgent string `mapstructure:"user_agent" validate:"required"`
}

const mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("redis_addr", "localhost:6379")

	v.SetDefault("upstream_host", "amigo.love")
	v.SetDefault("mobile_marker", "m.amigo")
	v.SetDefault("candidate_urls", []string{
		"https://m.amigo.love/game-slot",
		"https://m.amigo.love/game-slot/",
		"https://m.amigo.love/#/game-slot",
		"https://mobile.amigo.love/game-slot",
	})
	v.SetDefault("forced_mobile_url", "https://amigo.love/game-slot?mobile=1&forceLanguage=en")
	v.SetDefault("origin", "https://m.amigo.love")

	v.SetDefault("default_provider", "pg-soft")
	v.SetDefault("providers_file", "")

	v.SetDefault("cache_ttl", 15*time.Minute)
	v.SetDefault("failure_ttl", 5*time.Minute)
	v.SetDefault("local_ttl", 15*time.Minute)

	v.SetDefault("scrape_timeout", 60*time.Second)
	v.SetDefault("nav_timeout", 15*time.Second)
	v.SetDefault("settle_wait", 5*time.Second)
	v.SetDefault("container_wait", 10*time.Second)

	v.SetDefault("headless", true)
	v.SetDefault("user_agent", mobileUserAgent)
}

// Load reads configuration from SLOTFERRY_* environment variables and, when
// set, the config file at cfgFile.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SLOTFERRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
