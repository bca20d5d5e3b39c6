package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for the tracker.
type Config struct {
	// Upstream sources
	FeedURL       string `yaml:"feed_url" json:"feed_url"`
	WorldstateURL string `yaml:"worldstate_url" json:"worldstate_url"`
	TierPageURL   string `yaml:"tier_page_url" json:"tier_page_url"`

	// Fetch policy
	FetchAttempts  int     `yaml:"fetch_attempts" json:"fetch_attempts"`
	RetryDelaySec  int     `yaml:"retry_delay_sec" json:"retry_delay_sec"`
	TextTimeoutSec int     `yaml:"text_timeout_sec" json:"text_timeout_sec"`
	JSONTimeoutSec int     `yaml:"json_timeout_sec" json:"json_timeout_sec"`
	RatePerSec     float64 `yaml:"rate_per_sec" json:"rate_per_sec"`
	RateBurst      int     `yaml:"rate_burst" json:"rate_burst"`

	// Forward scan
	FutureCount int    `yaml:"future_count" json:"future_count"`
	FutureTier  string `yaml:"future_tier" json:"future_tier"`

	// Delivery
	DiscordToken string `yaml:"-" json:"-"`
	ChannelFile  string `yaml:"channel_file" json:"channel_file"`

	// Redis (optional channel store backend)
	RedisAddr       string `yaml:"redis_addr" json:"redis_addr"`
	RedisChannelKey string `yaml:"redis_channel_key" json:"redis_channel_key"`

	// Observability
	MetricsAddr  string `yaml:"metrics_addr" json:"metrics_addr"`
	OTELEndpoint string `yaml:"otel_endpoint" json:"otel_endpoint"`
	OTELInsecure bool   `yaml:"otel_insecure" json:"otel_insecure"`
	OTELService  string `yaml:"otel_service" json:"otel_service"`
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.FeedURL == "" {
		c.FeedURL = "https://browse.wf/arbys.txt"
	}
	if c.WorldstateURL == "" {
		c.WorldstateURL = "https://api.warframestat.us/solNodes"
	}
	if c.TierPageURL == "" {
		c.TierPageURL = "https://browse.wf/arbys"
	}
	if c.FetchAttempts == 0 {
		c.FetchAttempts = 3
	}
	if c.RetryDelaySec == 0 {
		c.RetryDelaySec = 5
	}
	if c.TextTimeoutSec == 0 {
		c.TextTimeoutSec = 15
	}
	if c.JSONTimeoutSec == 0 {
		c.JSONTimeoutSec = 20
	}
	if c.RatePerSec == 0 {
		c.RatePerSec = 2
	}
	if c.RateBurst == 0 {
		c.RateBurst = 4
	}
	if c.FutureCount == 0 {
		c.FutureCount = 3
	}
	if c.FutureTier == "" {
		c.FutureTier = "S"
	}
	if c.ChannelFile == "" {
		c.ChannelFile = "channel.json"
	}
	if c.RedisChannelKey == "" {
		c.RedisChannelKey = "arbywatch:channel"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
	if c.OTELService == "" {
		c.OTELService = "arbywatch"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.FeedURL == "" {
		return fmt.Errorf("feed_url is required")
	}
	if c.WorldstateURL == "" {
		return fmt.Errorf("worldstate_url is required")
	}
	if c.FetchAttempts < 1 {
		return fmt.Errorf("fetch_attempts must be at least 1")
	}
	if c.RetryDelaySec < 0 {
		return fmt.Errorf("retry_delay_sec must not be negative")
	}
	if c.TextTimeoutSec < 1 || c.JSONTimeoutSec < 1 {
		return fmt.Errorf("fetch timeouts must be at least 1s")
	}
	if c.FutureCount < 1 {
		return fmt.Errorf("future_count must be at least 1")
	}
	switch strings.ToUpper(c.FutureTier) {
	case "S", "A", "B", "C", "D", "F":
	default:
		return fmt.Errorf("future_tier must be one of S, A, B, C, D, F")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// MergeWithFlags merges command-line flags with file configuration.
// Command-line flags take precedence over file configuration.
func (c *Config) MergeWithFlags(flags map[string]interface{}) {
	if v, ok := flags["feed_url"].(string); ok && v != "" {
		c.FeedURL = v
	}
	if v, ok := flags["worldstate_url"].(string); ok && v != "" {
		c.WorldstateURL = v
	}
	if v, ok := flags["tier_page_url"].(string); ok && v != "" {
		c.TierPageURL = v
	}
	if v, ok := flags["channel_file"].(string); ok && v != "" {
		c.ChannelFile = v
	}
	if v, ok := flags["metrics_addr"].(string); ok && v != "" {
		c.MetricsAddr = v
	}
	if v, ok := flags["future_count"].(int); ok && v > 0 {
		c.FutureCount = v
	}
	if v, ok := flags["future_tier"].(string); ok && v != "" {
		c.FutureTier = v
	}
	if v, ok := flags["otel_endpoint"].(string); ok && v != "" {
		c.OTELEndpoint = v
	}
	if v, ok := flags["otel_service"].(string); ok && v != "" {
		c.OTELService = v
	}
	if v, ok := flags["otel_insecure"].(bool); ok {
		c.OTELInsecure = v
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.DiscordToken = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_CHANNEL_KEY"); v != "" {
		c.RedisChannelKey = v
	}
}
