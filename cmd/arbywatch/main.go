package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/arbywatch/arbywatch/internal/arbitration"
	"github.com/arbywatch/arbywatch/internal/channelstore"
	"github.com/arbywatch/arbywatch/internal/config"
	"github.com/arbywatch/arbywatch/internal/discord"
	"github.com/arbywatch/arbywatch/internal/feed"
	"github.com/arbywatch/arbywatch/internal/fetch"
	"github.com/arbywatch/arbywatch/internal/health"
	"github.com/arbywatch/arbywatch/internal/httpclient"
	"github.com/arbywatch/arbywatch/internal/logging"
	"github.com/arbywatch/arbywatch/internal/metrics"
	"github.com/arbywatch/arbywatch/internal/scheduler"
	"github.com/arbywatch/arbywatch/internal/telemetry"
	"github.com/arbywatch/arbywatch/internal/tier"
)

func main() {
	var configFile string
	var feedURL string
	var worldstateURL string
	var tierPageURL string
	var channelFile string
	var metricsAddr string
	var futureCount int
	var futureTier string
	var otelEndpoint string
	var otelInsecure bool
	var otelService string
	var verbose bool
	var showVersion bool

	flag.StringVar(&configFile, "config", "", "path to config file (YAML or JSON)")
	flag.StringVar(&feedURL, "feed_url", "", "schedule feed URL")
	flag.StringVar(&worldstateURL, "worldstate_url", "", "node metadata URL")
	flag.StringVar(&tierPageURL, "tier_page_url", "", "HTML tier hint page URL (empty to disable cross-check)")
	flag.StringVar(&channelFile, "channel_file", "", "path of the persisted channel id file")
	flag.StringVar(&metricsAddr, "metrics_addr", "", "metrics/admin listen addr")
	flag.IntVar(&futureCount, "future_count", 0, "max future occurrences to collect")
	flag.StringVar(&futureTier, "future_tier", "", "tier the forward scan collects (default S)")
	flag.StringVar(&otelEndpoint, "otel_endpoint", "", "OTLP HTTP endpoint (host:port)")
	flag.BoolVar(&otelInsecure, "otel_insecure", true, "OTLP insecure (no TLS)")
	flag.StringVar(&otelService, "otel_service", "", "OTEL service.name")
	flag.BoolVar(&verbose, "verbose", false, "verbose logging")
	flag.BoolVar(&showVersion, "version", false, "show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "arbywatch - hourly Arbitration tracker and notifier\n")
		fmt.Fprintf(os.Stderr, "Polls the schedule feed, grades the current hour and posts it to a chat channel.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DISCORD_TOKEN     Bot token used for channel delivery\n")
		fmt.Fprintf(os.Stderr, "  REDIS_ADDR        Redis server for the channel store (file store otherwise)\n")
		fmt.Fprintf(os.Stderr, "  REDIS_CHANNEL_KEY Redis key holding the channel id\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Println("arbywatch v1.0.0")
		fmt.Println("Built with Go", strings.TrimPrefix(runtime.Version(), "go"))
		os.Exit(0)
	}

	log := logging.New()
	if verbose {
		log = logging.NewVerbose()
	}
	defer log.Sync()

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			log.Fatalw("failed to load config file", "file", configFile, "err", err)
		}
		log.Infow("loaded config from file", "file", configFile)
	} else {
		cfg = &config.Config{}
		cfg.SetDefaults()
	}
	cfg.LoadFromEnv()

	flags := make(map[string]interface{})
	if feedURL != "" {
		flags["feed_url"] = feedURL
	}
	if worldstateURL != "" {
		flags["worldstate_url"] = worldstateURL
	}
	if tierPageURL != "" {
		flags["tier_page_url"] = tierPageURL
	}
	if channelFile != "" {
		flags["channel_file"] = channelFile
	}
	if metricsAddr != "" {
		flags["metrics_addr"] = metricsAddr
	}
	if futureCount > 0 {
		flags["future_count"] = futureCount
	}
	if futureTier != "" {
		flags["future_tier"] = futureTier
	}
	if otelEndpoint != "" {
		flags["otel_endpoint"] = otelEndpoint
	}
	if otelService != "" {
		flags["otel_service"] = otelService
	}
	flags["otel_insecure"] = otelInsecure
	cfg.MergeWithFlags(flags)

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "err", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.OTELService, cfg.OTELInsecure)
	if err != nil {
		log.Warnw("otel init failed", "err", err)
	} else {
		defer shutdown(context.Background())
	}

	hc := httpclient.Default()
	fc := fetch.New(hc, log, fetch.Options{
		Attempts:    cfg.FetchAttempts,
		Delay:       time.Duration(cfg.RetryDelaySec) * time.Second,
		TextTimeout: time.Duration(cfg.TextTimeoutSec) * time.Second,
		JSONTimeout: time.Duration(cfg.JSONTimeoutSec) * time.Second,
		RatePerSec:  cfg.RatePerSec,
		Burst:       cfg.RateBurst,
	})
	svc := arbitration.New(fc, cfg.FeedURL, cfg.WorldstateURL, cfg.TierPageURL, log)

	healthHandler := health.NewHandler(log)
	healthHandler.SetMetadata("service", cfg.OTELService)
	healthHandler.SetMetadata("version", "1.0.0")
	healthHandler.RegisterChecker("feed", health.NewUpstreamChecker(cfg.FeedURL, hc))

	var store channelstore.Store
	if cfg.RedisAddr != "" {
		rs, err := channelstore.NewRedis(cfg.RedisAddr, cfg.RedisChannelKey)
		if err != nil {
			log.Fatalw("redis channel store init", "err", err)
		}
		store = rs
		healthHandler.RegisterChecker("redis", health.NewRedisChecker(rs.Ping))
		log.Infow("redis channel store enabled", "addr", cfg.RedisAddr)
	} else {
		store = channelstore.NewFile(cfg.ChannelFile)
		log.Infow("file channel store enabled", "path", cfg.ChannelFile)
	}

	var dc *discord.Client
	if cfg.DiscordToken != "" {
		dc = discord.New(cfg.DiscordToken, nil, log)
	} else {
		log.Warnw("DISCORD_TOKEN not set, running without delivery")
	}

	targetTier, ok := tier.Parse(cfg.FutureTier)
	if !ok {
		targetTier = tier.S
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler.HealthHandler)
	mux.HandleFunc("/ready", healthHandler.ReadinessHandler)
	mux.HandleFunc("/live", healthHandler.LivenessHandler)
	registerAdmin(mux, svc, store, targetTier, cfg.FutureCount, log)
	go metrics.Serve(cfg.MetricsAddr, mux, log)
	log.Infow("metrics and admin server started", "addr", cfg.MetricsAddr)

	notify := func(ctx context.Context, trigger string) {
		rec := svc.Current(ctx, trigger)
		upcoming := svc.UpcomingAtTier(ctx, targetTier, cfg.FutureCount, false)
		log.Infow("arbitration assembled",
			"trigger", trigger,
			"map", rec.MapLabel,
			"faction", rec.Faction,
			"type", rec.MissionType,
			"tier", rec.Tier.String(),
			"upcoming", len(upcoming),
		)
		if dc == nil {
			return
		}
		id, err := store.ChannelID(ctx)
		if err != nil {
			log.Warnw("no channel configured, skipping notification", "err", err)
			return
		}
		dc.Notify(ctx, id, rec, upcoming, feed.HourStart(time.Now()))
	}

	log.Infow("starting arbywatch",
		"feed_url", cfg.FeedURL,
		"worldstate_url", cfg.WorldstateURL,
		"future_tier", targetTier.String(),
		"future_count", cfg.FutureCount,
	)

	// Ready gate: the first alignment computation happens only after
	// startup wiring is complete.
	healthHandler.SetReady(true)
	notify(ctx, "startup")

	scheduler.NewHourly(log).Run(ctx, func(ctx context.Context) {
		notify(ctx, "hourly")
	})
	log.Infow("shutdown complete")
}
