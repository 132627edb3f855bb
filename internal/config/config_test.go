package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalSources = `
harvester:
  sources:
    - name: linkedin
      type: linkedin
      enabled: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
acquisition_interval: 6h
delivery_times: ["08:30", "20:00"]
retention_days: 3
cleanup_hour: 4
lookback: 12h
delivery:
  batch_size: 5
  per_subscriber_limit: 2
  send_delay: 100ms
  batch_delay: 2s
acquisition:
  combination_delay: 1s
  topic_delay: 500ms
retry:
  attempts: 5
  delay: 1s
rate_limit:
  min_delay: 2s
  source_overrides:
    internshala: 10s
store:
  driver: sqlite
  dsn: /tmp/jobs.db
gateway:
  type: telegram
  bot_token: "123:abc"
harvester:
  http_timeout: 10s
  sources:
    - name: linkedin
      type: linkedin
      location: India
      max_results: 10
      enabled: true
    - name: boards
      type: greenhouse
      boards: [acme, globex]
      enabled: true
    - name: internshala
      type: internshala
      enabled: false
metrics:
  addr: ":9090"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AcquisitionInterval != 6*time.Hour {
		t.Errorf("AcquisitionInterval = %v, want 6h", cfg.AcquisitionInterval)
	}
	if len(cfg.DeliveryTimes) != 2 || cfg.DeliveryTimes[0] != "08:30" {
		t.Errorf("DeliveryTimes = %v", cfg.DeliveryTimes)
	}
	if cfg.RetentionDays != 3 || cfg.CleanupHour != 4 || cfg.Lookback != 12*time.Hour {
		t.Errorf("retention/cleanup/lookback = %d/%d/%v", cfg.RetentionDays, cfg.CleanupHour, cfg.Lookback)
	}
	if cfg.Delivery.BatchSize != 5 || cfg.Delivery.PerSubscriberLimit != 2 {
		t.Errorf("Delivery = %+v", cfg.Delivery)
	}
	if cfg.Delivery.SendDelay != 100*time.Millisecond || cfg.Delivery.BatchDelay != 2*time.Second {
		t.Errorf("Delivery delays = %+v", cfg.Delivery)
	}
	if cfg.Acquisition.CombinationDelay != time.Second || cfg.Acquisition.TopicDelay != 500*time.Millisecond {
		t.Errorf("Acquisition = %+v", cfg.Acquisition)
	}
	if cfg.Retry.Attempts != 5 || cfg.Retry.Delay != time.Second || cfg.Retry.MaxDelay != time.Minute {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if got := cfg.RateLimit.MinDelayFor("internshala"); got != 10*time.Second {
		t.Errorf("MinDelayFor(internshala) = %v, want 10s", got)
	}
	if got := cfg.RateLimit.MinDelayFor("linkedin"); got != 2*time.Second {
		t.Errorf("MinDelayFor(linkedin) = %v, want 2s", got)
	}
	if cfg.Store.DSN != "/tmp/jobs.db" || cfg.Gateway.BotToken != "123:abc" {
		t.Errorf("Store/Gateway = %+v / %+v", cfg.Store, cfg.Gateway)
	}
	if cfg.Harvester.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.Harvester.HTTPTimeout)
	}
	enabled := cfg.Harvester.EnabledSources()
	if len(enabled) != 2 || enabled[1].Boards[1] != "globex" {
		t.Errorf("EnabledSources = %+v", enabled)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalSources))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AcquisitionInterval != 12*time.Hour {
		t.Errorf("AcquisitionInterval = %v, want 12h", cfg.AcquisitionInterval)
	}
	if strings.Join(cfg.DeliveryTimes, ",") != "09:00,18:00" {
		t.Errorf("DeliveryTimes = %v", cfg.DeliveryTimes)
	}
	if cfg.RetentionDays != 7 || cfg.CleanupHour != 3 || cfg.Lookback != 24*time.Hour {
		t.Errorf("retention/cleanup/lookback = %d/%d/%v", cfg.RetentionDays, cfg.CleanupHour, cfg.Lookback)
	}
	if cfg.Delivery.BatchSize != 10 || cfg.Delivery.PerSubscriberLimit != 3 {
		t.Errorf("Delivery = %+v", cfg.Delivery)
	}
	if cfg.Delivery.SendDelay != 500*time.Millisecond || cfg.Delivery.BatchDelay != time.Second {
		t.Errorf("Delivery delays = %+v", cfg.Delivery)
	}
	if cfg.Acquisition.CombinationDelay != 5*time.Second || cfg.Acquisition.TopicDelay != 3*time.Second {
		t.Errorf("Acquisition = %+v", cfg.Acquisition)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.Delay != 5*time.Second || cfg.Retry.MaxJitter != 2*time.Second {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.RateLimit.MinDelay != 3*time.Second {
		t.Errorf("RateLimit.MinDelay = %v", cfg.RateLimit.MinDelay)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "jobalert.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Gateway.Type != "log" {
		t.Errorf("Gateway.Type = %q", cfg.Gateway.Type)
	}
	if len(cfg.Topics) != len(DefaultTopics) {
		t.Errorf("Topics = %v", cfg.Topics)
	}
	if cfg.Harvester.CacheTTL != 0 || cfg.Lock.TTL != 2*time.Hour {
		t.Errorf("CacheTTL/Lock.TTL = %v/%v", cfg.Harvester.CacheTTL, cfg.Lock.TTL)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("JOBALERT_TEST_TOKEN", "999:xyz")
	cfg, err := Load(writeConfig(t, minimalSources+`
gateway:
  type: telegram
  bot_token: ${JOBALERT_TEST_TOKEN}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.BotToken != "999:xyz" {
		t.Errorf("BotToken = %q, want 999:xyz", cfg.Gateway.BotToken)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "acquisition_interval: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"zero interval", "acquisition_interval: 0s" + minimalSources, "acquisition_interval"},
		{"bad duration", "lookback: soon" + minimalSources, "lookback"},
		{"negative lookback", "lookback: -1h" + minimalSources, "lookback"},
		{"bad delivery time", `delivery_times: ["25:00"]` + minimalSources, "delivery_times"},
		{"delivery time with suffix", `delivery_times: ["09:00pm"]` + minimalSources, "delivery_times"},
		{"zero retention", "retention_days: 0" + minimalSources, "retention_days"},
		{"cleanup hour", "cleanup_hour: 24" + minimalSources, "cleanup_hour"},
		{"batch size", "delivery:\n  batch_size: 0" + minimalSources, "batch_size"},
		{"per subscriber limit", "delivery:\n  per_subscriber_limit: 0" + minimalSources, "per_subscriber_limit"},
		{"unknown driver", "store:\n  driver: mysql" + minimalSources, "store.driver"},
		{"postgres without dsn", "store:\n  driver: postgres" + minimalSources, "store.dsn"},
		{"unknown gateway", "gateway:\n  type: email" + minimalSources, "gateway.type"},
		{"slack without webhook", "gateway:\n  type: slack" + minimalSources, "webhook_url"},
		{"slack bad webhook", "gateway:\n  type: slack\n  webhook_url: https://example.com/x" + minimalSources, "hooks.slack.com"},
		{"telegram without token", "gateway:\n  type: telegram" + minimalSources, "bot_token"},
		{"no sources", "retention_days: 7", "at least one harvester source"},
		{"unknown source", "harvester:\n  sources:\n    - name: x\n      type: indeed\n      enabled: true", "type must be one of"},
		{"greenhouse without boards", "harvester:\n  sources:\n    - name: gh\n      type: greenhouse\n      enabled: true", "board"},
		{"lever without boards", "harvester:\n  sources:\n    - name: lv\n      type: lever\n      enabled: true", "board"},
		{"duplicate names", "harvester:\n  sources:\n    - name: a\n      type: linkedin\n      enabled: true\n    - name: a\n      type: internshala\n      enabled: true", "used twice"},
		{"cache without redis", "harvester:\n  cache_ttl: 1h\n  sources:\n    - name: a\n      type: linkedin\n      enabled: true", "redis_addr"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}
