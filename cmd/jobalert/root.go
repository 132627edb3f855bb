package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobalert/internal/acquisition"
	"github.com/amishk599/jobalert/internal/config"
	"github.com/amishk599/jobalert/internal/delivery"
	"github.com/amishk599/jobalert/internal/filter"
	"github.com/amishk599/jobalert/internal/harvester"
	"github.com/amishk599/jobalert/internal/lock"
	"github.com/amishk599/jobalert/internal/matching"
	"github.com/amishk599/jobalert/internal/metrics"
	"github.com/amishk599/jobalert/internal/model"
	"github.com/amishk599/jobalert/internal/notifier"
	"github.com/amishk599/jobalert/internal/ratelimit"
	"github.com/amishk599/jobalert/internal/retention"
	"github.com/amishk599/jobalert/internal/retry"
	"github.com/amishk599/jobalert/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobalert",
	Short: "Job and internship alerts for subscribers",
	Long:  "jobalert harvests postings from job boards, matches them to subscriber preferences and delivers them on a schedule.",
	// Running the binary with no subcommand starts the daemon.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBALERT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBALERT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBALERT_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// app holds what every subcommand shares: config, logger, ledger and, when
// configured, the Redis client.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.SQLStore
	redis      *redis.Client
	metrics    *metrics.Metrics
	httpClient *http.Client
}

// newApp loads the config and opens the store. Redis is dialed only when
// withRedis is set and lock.redis_addr is configured.
func newApp(ctx context.Context, logger *slog.Logger, withRedis bool) (*app, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		httpClient: &http.Client{Timeout: cfg.Harvester.HTTPTimeout},
	}

	if withRedis && cfg.Lock.RedisAddr != "" {
		client, err := lock.Dial(ctx, cfg.Lock.RedisAddr, cfg.Lock.RedisPassword, cfg.Lock.RedisDB)
		if err != nil {
			st.Close()
			return nil, err
		}
		a.redis = client
		logger.Info("connected to redis", "addr", cfg.Lock.RedisAddr)
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.store.Close()
}

func (a *app) retryPolicy() retry.Policy {
	return retry.Policy{
		Attempts:  a.cfg.Retry.Attempts,
		Delay:     a.cfg.Retry.Delay,
		MaxDelay:  a.cfg.Retry.MaxDelay,
		MaxJitter: a.cfg.Retry.MaxJitter,
	}
}

// gateway builds the configured messaging gateway wrapped with retries.
func (a *app) gateway() model.Gateway {
	var g model.Gateway
	switch a.cfg.Gateway.Type {
	case "slack":
		a.logger.Info("using slack gateway")
		g = notifier.NewSlackGateway(a.cfg.Gateway.WebhookURL, a.httpClient, a.logger)
	case "telegram":
		a.logger.Info("using telegram gateway")
		g = notifier.NewTelegramGateway(a.cfg.Gateway.APIURL, a.cfg.Gateway.BotToken, a.httpClient, a.logger)
	default:
		return notifier.NewLogGateway(a.logger)
	}
	return retry.NewGateway(g, a.retryPolicy(), a.logger)
}

// boardFilter matches board postings against a request. Board sources list
// every opening, so they are narrowed by topic keywords and locations.
func boardFilter(cfg *config.Config) *filter.TopicFilter {
	return filter.NewTopicFilter(nil, cfg.Harvester.Locations)
}

func createHarvester(src config.SourceConfig, cfg *config.Config, httpClient *http.Client) (model.Harvester, bool) {
	switch src.Type {
	case config.SourceLinkedIn:
		return harvester.NewLinkedIn(src.BaseURL, src.Location, src.MaxResults, httpClient), true
	case config.SourceInternshala:
		return harvester.NewInternshala(src.BaseURL, src.MaxResults, httpClient), true
	case config.SourceGreenhouse:
		return harvester.NewGreenhouse(src.BaseURL, src.Boards, boardFilter(cfg), src.MaxResults, httpClient), true
	case config.SourceLever:
		return harvester.NewLever(src.BaseURL, src.Boards, boardFilter(cfg), src.MaxResults, httpClient), true
	case config.SourceAshby:
		return harvester.NewAshby(src.BaseURL, src.Boards, boardFilter(cfg), src.MaxResults, httpClient), true
	case config.SourceGem:
		return harvester.NewGem(src.BaseURL, src.Boards, boardFilter(cfg), src.MaxResults, httpClient), true
	default:
		return nil, false
	}
}

// harvester builds every enabled source, each wrapped with the cache (when
// enabled), retries and the shared per-source rate limiter.
func (a *app) harvester() model.Harvester {
	limiter := ratelimit.NewSourceLimiter(a.cfg.RateLimit.MinDelay)
	for source, d := range a.cfg.RateLimit.SourceOverride {
		limiter.Override(source, d)
	}
	a.logger.Info("rate limiter configured", "min_delay", a.cfg.RateLimit.MinDelay.String())

	var sources []harvester.Source
	for _, src := range a.cfg.Harvester.EnabledSources() {
		h, ok := createHarvester(src, a.cfg, a.httpClient)
		if !ok {
			a.logger.Warn("unsupported source type, skipping", "source", src.Name, "type", src.Type)
			continue
		}
		h = ratelimit.NewHarvester(h, limiter, src.Name)
		h = retry.NewHarvester(h, src.Name, a.retryPolicy(), a.logger)
		if a.redis != nil && a.cfg.Harvester.CacheTTL > 0 {
			h = harvester.NewCached(h, a.redis, src.Name, a.cfg.Harvester.CacheTTL, a.logger)
		}
		sources = append(sources, harvester.Source{Name: src.Name, Harvester: h})
		a.logger.Info("registered source", "name", src.Name, "type", src.Type)
	}
	return harvester.NewMulti(sources, a.logger)
}

func (a *app) trigger() *acquisition.Trigger {
	opts := acquisition.Options{
		CombinationDelay: a.cfg.Acquisition.CombinationDelay,
		TopicDelay:       a.cfg.Acquisition.TopicDelay,
		Metrics:          a.metrics,
	}
	if a.redis != nil {
		opts.Lease = lock.NewRedis(a.redis, "jobalert:acquisition", a.cfg.Lock.TTL)
	}
	return acquisition.NewTrigger(a.matcher(), a.harvester(), a.store, opts, a.logger)
}

func (a *app) matcher() *matching.Engine {
	return matching.NewEngine(a.store, a.cfg.Lookback)
}

func (a *app) deliveryEngine() *delivery.Engine {
	opts := delivery.Options{
		BatchSize:          a.cfg.Delivery.BatchSize,
		PerSubscriberLimit: a.cfg.Delivery.PerSubscriberLimit,
		SendDelay:          a.cfg.Delivery.SendDelay,
		BatchDelay:         a.cfg.Delivery.BatchDelay,
		Metrics:            a.metrics,
	}
	return delivery.NewEngine(a.store, a.matcher(), a.store, a.gateway(), opts, a.logger)
}

func (a *app) cleaner() *retention.Cleaner {
	return retention.NewCleaner(a.store, a.metrics, a.logger)
}
