// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	DNS     DNSConfig     `mapstructure:"dns"`
	Harbor  HarborConfig  `mapstructure:"harbor"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// FetchConfig governs the outbound HTTP readers. Story fetches carry a
// shorter timeout than feed fetches so enrichment stays under the caller's
// own deadline budget.
type FetchConfig struct {
	UserAgent           string  `mapstructure:"user_agent"`
	FeedTimeoutSeconds  int     `mapstructure:"feed_timeout_seconds"`
	StoryTimeoutSeconds int     `mapstructure:"story_timeout_seconds"`
	MaxFeedBytes        int64   `mapstructure:"max_feed_bytes"`
	MaxStoryBytes       int64   `mapstructure:"max_story_bytes"`
	RatePerHost         float64 `mapstructure:"rate_per_host"`
	RateBurst           int     `mapstructure:"rate_burst"`
}

// ProxyConfig configures outbound proxy routing.
type ProxyConfig struct {
	URL            string   `mapstructure:"url"`
	TaggedPrefixes []string `mapstructure:"tagged_prefixes"`
}

// WorkerConfig tunes the sync and enrichment pipelines.
type WorkerConfig struct {
	SwitchProb   float64 `mapstructure:"switch_prob"`
	MaxRedirects int     `mapstructure:"max_redirects"`
	MaxStoryHTML int     `mapstructure:"max_story_html"`
	MaxContent   int     `mapstructure:"max_content"`
	MaxSummary   int     `mapstructure:"max_summary"`
}

// DNSConfig controls the background DNS refresher.
type DNSConfig struct {
	Hosts           []string `mapstructure:"hosts"`
	WarmupSeconds   int      `mapstructure:"warmup_seconds"`
	IntervalSeconds int      `mapstructure:"interval_seconds"`
}

// HarborConfig points at the harbor result sink. An empty base URL selects
// the log sink instead.
type HarborConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	APIKey         string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FEEDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.user_agent", "feedsync-bot/1.0")
	v.SetDefault("fetch.feed_timeout_seconds", 30)
	v.SetDefault("fetch.story_timeout_seconds", 25)
	v.SetDefault("fetch.max_feed_bytes", 10*1024*1024)
	v.SetDefault("fetch.max_story_bytes", 10*1024*1024)
	v.SetDefault("fetch.rate_per_host", 0)
	v.SetDefault("fetch.rate_burst", 1)
	v.SetDefault("worker.switch_prob", 0.25)
	v.SetDefault("worker.max_redirects", 2)
	v.SetDefault("worker.max_story_html", 5000000)
	v.SetDefault("worker.max_content", 1024000)
	v.SetDefault("worker.max_summary", 300)
	v.SetDefault("dns.warmup_seconds", 10)
	v.SetDefault("dns.interval_seconds", 4*60*60)
	v.SetDefault("harbor.timeout_seconds", 10)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.FeedTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.feed_timeout_seconds must be > 0")
	}
	if c.Fetch.StoryTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.story_timeout_seconds must be > 0")
	}
	if c.Worker.SwitchProb < 0 || c.Worker.SwitchProb > 1 {
		return fmt.Errorf("worker.switch_prob must be within [0, 1]")
	}
	if c.Worker.MaxRedirects < 0 {
		return fmt.Errorf("worker.max_redirects must be >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FeedTimeout returns the feed fetch timeout as a duration.
func (c Config) FeedTimeout() time.Duration {
	return time.Duration(c.Fetch.FeedTimeoutSeconds) * time.Second
}

// StoryTimeout returns the story fetch timeout as a duration.
func (c Config) StoryTimeout() time.Duration {
	return time.Duration(c.Fetch.StoryTimeoutSeconds) * time.Second
}

// DNSWarmup returns the refresher warm-up delay as a duration.
func (c Config) DNSWarmup() time.Duration {
	return time.Duration(c.DNS.WarmupSeconds) * time.Second
}

// DNSInterval returns the refresher interval as a duration.
func (c Config) DNSInterval() time.Duration {
	return time.Duration(c.DNS.IntervalSeconds) * time.Second
}

// HarborTimeout returns the sink RPC timeout as a duration.
func (c Config) HarborTimeout() time.Duration {
	return time.Duration(c.Harbor.TimeoutSeconds) * time.Second
}
