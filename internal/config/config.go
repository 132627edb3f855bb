package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobalert/internal/scheduler"
)

// Config is the root configuration for jobalert.
type Config struct {
	AcquisitionInterval time.Duration
	DeliveryTimes       []string // HH:MM, local time
	RetentionDays       int
	CleanupHour         int
	Lookback            time.Duration
	Topics              []string

	Delivery    DeliveryConfig
	Acquisition AcquisitionConfig
	Retry       RetryConfig
	RateLimit   RateLimitConfig
	Store       StoreConfig
	Gateway     GatewayConfig
	Harvester   HarvesterConfig
	Lock        LockConfig
	Metrics     MetricsConfig
}

// DeliveryConfig controls batching and pacing of deliveries.
type DeliveryConfig struct {
	BatchSize          int
	PerSubscriberLimit int
	SendDelay          time.Duration
	BatchDelay         time.Duration
}

// AcquisitionConfig controls pacing of a harvest cycle.
type AcquisitionConfig struct {
	CombinationDelay time.Duration
	TopicDelay       time.Duration
}

// RetryConfig is the policy applied to harvester and gateway calls.
type RetryConfig struct {
	Attempts  uint
	Delay     time.Duration
	MaxDelay  time.Duration
	MaxJitter time.Duration
}

// RateLimitConfig controls per-source request spacing.
type RateLimitConfig struct {
	MinDelay       time.Duration
	SourceOverride map[string]time.Duration // keyed by source name
}

// MinDelayFor returns the configured delay for the given source, falling
// back to MinDelay.
func (r RateLimitConfig) MinDelayFor(source string) time.Duration {
	if d, ok := r.SourceOverride[source]; ok {
		return d
	}
	return r.MinDelay
}

// StoreConfig selects the ledger database.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`    // file path for sqlite
}

// GatewayConfig selects how messages reach subscribers.
type GatewayConfig struct {
	Type       string `yaml:"type"`        // "log", "slack" or "telegram"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
	BotToken   string `yaml:"bot_token"`   // required if type is "telegram"
	APIURL     string `yaml:"api_url"`     // telegram API root override
}

// SourceConfig describes one posting source.
type SourceConfig struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"` // linkedin, internshala, or a board source
	BaseURL    string   `yaml:"base_url"`
	Location   string   `yaml:"location"`
	Boards     []string `yaml:"boards"` // company board tokens for board sources
	MaxResults int      `yaml:"max_results"`
	Enabled    bool     `yaml:"enabled"`
}

// HarvesterConfig lists the sources and shared HTTP settings.
type HarvesterConfig struct {
	Sources     []SourceConfig
	HTTPTimeout time.Duration
	CacheTTL    time.Duration // zero disables the Redis harvest cache
	Locations   []string      // location keywords for board sources
}

// EnabledSources returns the sources switched on.
func (h HarvesterConfig) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range h.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// LockConfig enables the Redis acquisition lease when RedisAddr is set.
type LockConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

const (
	SourceLinkedIn    = "linkedin"
	SourceInternshala = "internshala"
	SourceGreenhouse  = "greenhouse"
	SourceLever       = "lever"
	SourceAshby       = "ashby"
	SourceGem         = "gem"
)

var (
	knownDrivers  = []string{"sqlite", "postgres"}
	knownGateways = []string{"log", "slack", "telegram"}
	knownSources  = []string{SourceLinkedIn, SourceInternshala, SourceGreenhouse, SourceLever, SourceAshby, SourceGem}
	boardSources  = []string{SourceGreenhouse, SourceLever, SourceAshby, SourceGem}
)

// DefaultTopics are offered to subscribers when the config lists none.
var DefaultTopics = []string{
	"Python Developer",
	"Web Development",
	"Data Science",
	"Machine Learning",
	"Android Development",
	"iOS Development",
	"DevOps",
	"Digital Marketing",
	"UI/UX Design",
	"Content Writing",
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	AcquisitionInterval string               `yaml:"acquisition_interval"`
	DeliveryTimes       []string             `yaml:"delivery_times"`
	RetentionDays       *int                 `yaml:"retention_days"`
	CleanupHour         *int                 `yaml:"cleanup_hour"`
	Lookback            string               `yaml:"lookback"`
	Topics              []string             `yaml:"topics"`
	Delivery            rawDeliveryConfig    `yaml:"delivery"`
	Acquisition         rawAcquisitionConfig `yaml:"acquisition"`
	Retry               rawRetryConfig       `yaml:"retry"`
	RateLimit           rawRateLimitConfig   `yaml:"rate_limit"`
	Store               StoreConfig          `yaml:"store"`
	Gateway             GatewayConfig        `yaml:"gateway"`
	Harvester           rawHarvesterConfig   `yaml:"harvester"`
	Lock                rawLockConfig        `yaml:"lock"`
	Metrics             MetricsConfig        `yaml:"metrics"`
}

type rawDeliveryConfig struct {
	BatchSize          *int   `yaml:"batch_size"`
	PerSubscriberLimit *int   `yaml:"per_subscriber_limit"`
	SendDelay          string `yaml:"send_delay"`
	BatchDelay         string `yaml:"batch_delay"`
}

type rawAcquisitionConfig struct {
	CombinationDelay string `yaml:"combination_delay"`
	TopicDelay       string `yaml:"topic_delay"`
}

type rawRetryConfig struct {
	Attempts  *uint  `yaml:"attempts"`
	Delay     string `yaml:"delay"`
	MaxDelay  string `yaml:"max_delay"`
	MaxJitter string `yaml:"max_jitter"`
}

type rawRateLimitConfig struct {
	MinDelay        string            `yaml:"min_delay"`
	SourceOverrides map[string]string `yaml:"source_overrides"`
}

type rawHarvesterConfig struct {
	Sources     []SourceConfig `yaml:"sources"`
	HTTPTimeout string         `yaml:"http_timeout"`
	CacheTTL    string         `yaml:"cache_ttl"`
	Locations   []string       `yaml:"locations"`
}

type rawLockConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTL           string `yaml:"ttl"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes. Environment variables are expanded
// first and unset keys take their defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	p := durationParser{}
	cfg := &Config{
		AcquisitionInterval: p.parse("acquisition_interval", raw.AcquisitionInterval, 12*time.Hour),
		DeliveryTimes:       raw.DeliveryTimes,
		RetentionDays:       intOr(raw.RetentionDays, 7),
		CleanupHour:         intOr(raw.CleanupHour, 3),
		Lookback:            p.parse("lookback", raw.Lookback, 24*time.Hour),
		Topics:              raw.Topics,
		Delivery: DeliveryConfig{
			BatchSize:          intOr(raw.Delivery.BatchSize, 10),
			PerSubscriberLimit: intOr(raw.Delivery.PerSubscriberLimit, 3),
			SendDelay:          p.parse("delivery.send_delay", raw.Delivery.SendDelay, 500*time.Millisecond),
			BatchDelay:         p.parse("delivery.batch_delay", raw.Delivery.BatchDelay, time.Second),
		},
		Acquisition: AcquisitionConfig{
			CombinationDelay: p.parse("acquisition.combination_delay", raw.Acquisition.CombinationDelay, 5*time.Second),
			TopicDelay:       p.parse("acquisition.topic_delay", raw.Acquisition.TopicDelay, 3*time.Second),
		},
		Retry: RetryConfig{
			Attempts:  3,
			Delay:     p.parse("retry.delay", raw.Retry.Delay, 5*time.Second),
			MaxDelay:  p.parse("retry.max_delay", raw.Retry.MaxDelay, time.Minute),
			MaxJitter: p.parse("retry.max_jitter", raw.Retry.MaxJitter, 2*time.Second),
		},
		RateLimit: RateLimitConfig{
			MinDelay:       p.parse("rate_limit.min_delay", raw.RateLimit.MinDelay, 3*time.Second),
			SourceOverride: make(map[string]time.Duration),
		},
		Store:   raw.Store,
		Gateway: raw.Gateway,
		Harvester: HarvesterConfig{
			Sources:     raw.Harvester.Sources,
			HTTPTimeout: p.parse("harvester.http_timeout", raw.Harvester.HTTPTimeout, 30*time.Second),
			CacheTTL:    p.parse("harvester.cache_ttl", raw.Harvester.CacheTTL, 0),
			Locations:   raw.Harvester.Locations,
		},
		Lock: LockConfig{
			RedisAddr:     raw.Lock.RedisAddr,
			RedisPassword: raw.Lock.RedisPassword,
			RedisDB:       raw.Lock.RedisDB,
			TTL:           p.parse("lock.ttl", raw.Lock.TTL, 2*time.Hour),
		},
		Metrics: raw.Metrics,
	}
	for source, d := range raw.RateLimit.SourceOverrides {
		cfg.RateLimit.SourceOverride[source] = p.parse("rate_limit.source_overrides."+source, d, 0)
	}
	if p.err != nil {
		return nil, p.err
	}

	if raw.Retry.Attempts != nil {
		cfg.Retry.Attempts = *raw.Retry.Attempts
	}
	if len(cfg.DeliveryTimes) == 0 {
		cfg.DeliveryTimes = []string{"09:00", "18:00"}
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = DefaultTopics
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.DSN == "" && cfg.Store.Driver == "sqlite" {
		cfg.Store.DSN = "jobalert.db"
	}
	if cfg.Gateway.Type == "" {
		cfg.Gateway.Type = "log"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// durationParser keeps the first parse error so Parse can report it once.
type durationParser struct {
	err error
}

func (p *durationParser) parse(key, value string, def time.Duration) time.Duration {
	if value == "" || p.err != nil {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.err = fmt.Errorf("parse %s %q: %w", key, value, err)
		return def
	}
	return d
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func validate(cfg *Config) error {
	if cfg.AcquisitionInterval <= 0 {
		return fmt.Errorf("acquisition_interval must be positive, got %v", cfg.AcquisitionInterval)
	}
	for _, t := range cfg.DeliveryTimes {
		if _, err := scheduler.ParseClock(t); err != nil {
			return fmt.Errorf("delivery_times: %w", err)
		}
	}
	if cfg.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be at least 1, got %d", cfg.RetentionDays)
	}
	if cfg.CleanupHour < 0 || cfg.CleanupHour > 23 {
		return fmt.Errorf("cleanup_hour must be between 0 and 23, got %d", cfg.CleanupHour)
	}
	if cfg.Lookback <= 0 {
		return fmt.Errorf("lookback must be positive, got %v", cfg.Lookback)
	}
	if cfg.Delivery.BatchSize < 1 {
		return fmt.Errorf("delivery.batch_size must be at least 1, got %d", cfg.Delivery.BatchSize)
	}
	if cfg.Delivery.PerSubscriberLimit < 1 {
		return fmt.Errorf("delivery.per_subscriber_limit must be at least 1, got %d", cfg.Delivery.PerSubscriberLimit)
	}
	if cfg.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1")
	}

	if !slices.Contains(knownDrivers, cfg.Store.Driver) {
		return fmt.Errorf("store.driver must be one of %v, got %q", knownDrivers, cfg.Store.Driver)
	}
	if cfg.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for driver %q", cfg.Store.Driver)
	}

	if !slices.Contains(knownGateways, cfg.Gateway.Type) {
		return fmt.Errorf("gateway.type must be one of %v, got %q", knownGateways, cfg.Gateway.Type)
	}
	switch cfg.Gateway.Type {
	case "slack":
		if cfg.Gateway.WebhookURL == "" {
			return fmt.Errorf("gateway.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Gateway.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("gateway.webhook_url must start with https://hooks.slack.com/")
		}
	case "telegram":
		if cfg.Gateway.BotToken == "" {
			return fmt.Errorf("gateway.bot_token is required when type is \"telegram\"")
		}
	}

	enabled := cfg.Harvester.EnabledSources()
	if len(enabled) == 0 {
		return fmt.Errorf("at least one harvester source must be enabled")
	}
	names := make(map[string]bool)
	for _, s := range enabled {
		if s.Name == "" {
			return fmt.Errorf("harvester source of type %q needs a name", s.Type)
		}
		if names[s.Name] {
			return fmt.Errorf("harvester source name %q is used twice", s.Name)
		}
		names[s.Name] = true
		if !slices.Contains(knownSources, s.Type) {
			return fmt.Errorf("harvester source %q: type must be one of %v, got %q", s.Name, knownSources, s.Type)
		}
		if slices.Contains(boardSources, s.Type) && len(s.Boards) == 0 {
			return fmt.Errorf("harvester source %q: %s needs at least one board", s.Name, s.Type)
		}
	}
	if cfg.Harvester.CacheTTL > 0 && cfg.Lock.RedisAddr == "" {
		return fmt.Errorf("harvester.cache_ttl needs lock.redis_addr")
	}

	return nil
}
