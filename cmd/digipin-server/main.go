package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/digipin-grid/internal/cache"
	"github.com/mohammed-shakir/digipin-grid/internal/cache/redisstore"
	"github.com/mohammed-shakir/digipin-grid/internal/core/config"
	"github.com/mohammed-shakir/digipin-grid/internal/core/observability"
	"github.com/mohammed-shakir/digipin-grid/internal/core/router"
	"github.com/mohammed-shakir/digipin-grid/internal/core/server"
	"github.com/mohammed-shakir/digipin-grid/internal/decision/simple"
	"github.com/mohammed-shakir/digipin-grid/internal/devices"
	"github.com/mohammed-shakir/digipin-grid/internal/hotness/expdecay"
	"github.com/mohammed-shakir/digipin-grid/internal/hotness/metricswrap"
	"github.com/mohammed-shakir/digipin-grid/internal/ingest/kafkaconsumer"
	"github.com/mohammed-shakir/digipin-grid/internal/logger"
	"github.com/mohammed-shakir/digipin-grid/internal/lookupevents"
	gridmapper "github.com/mohammed-shakir/digipin-grid/internal/mapper/grid"
	h3mapper "github.com/mohammed-shakir/digipin-grid/internal/mapper/h3"
	"github.com/mohammed-shakir/digipin-grid/internal/metrics"
	"github.com/mohammed-shakir/digipin-grid/internal/share"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "digipin-server",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{}
	if cfg.MetricsEnabled {
		p := metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    cfg.MetricsAddr,
			Path:    cfg.MetricsPath,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		observability.Init(p.Registerer(), true)
		deps.Metrics = p.Handler()
		go func() {
			if err := p.Serve(ctx, appLog); err != nil {
				appLog.Error("metrics server exited", "err", err)
			}
		}()
	} else {
		observability.Init(nil, true)
	}
	observability.ExposeBuildInfo(Version)

	var kv cache.Interface
	if cfg.RedisAddr != "" {
		rc, err := redisstore.New(ctx, cfg.RedisAddr,
			redisstore.WithPoolSize(cfg.RedisPoolSize),
			redisstore.WithMinIdleConns(cfg.RedisMinIdle),
			redisstore.WithDialTimeout(cfg.RedisDialTO),
			redisstore.WithReadTimeout(cfg.CacheOpTimeout),
			redisstore.WithWriteTimeout(cfg.CacheOpTimeout),
		)
		if err != nil {
			appLog.Error("redis connect failed", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = rc.Close() }()
		kv = rc
		deps.Store = rc
	} else {
		mem, err := cache.NewMemory(cfg.MemoryCacheSize)
		if err != nil {
			appLog.Error("memory cache", "err", err)
			return 1
		}
		appLog.Warn("REDIS_ADDR not set; share links and device locations are kept in memory")
		kv = mem
	}
	kv = cache.WithTimeout(kv, cfg.CacheOpTimeout)

	tracker := expdecay.New(cfg.HotHalfLife)
	hot := metricswrap.New(tracker, cfg.HotThreshold, appLog)
	go pruneLoop(ctx, tracker, cfg.HotHalfLife)

	policy := simple.New(hot, simple.Config{
		Threshold: cfg.HotThreshold,
		Level:     cfg.HotLevel,
		TTLCold:   cfg.ShareTTLCold,
		TTLWarm:   cfg.ShareTTLWarm,
		TTLHot:    cfg.ShareTTLHot,
	})
	devStore := devices.NewStore(kv, cfg.DeviceTTL)

	var events lookupevents.Publisher = lookupevents.Discard{}
	if cfg.Kafka.Enabled {
		pub, err := lookupevents.NewKafka(cfg.Kafka.BrokerList(), cfg.Kafka.LookupTopic, cfg.Kafka.QueueSize, appLog)
		if err != nil {
			appLog.Error("lookup publisher", "err", err)
			return 1
		}
		events = pub

		consumer := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg), appLog, devStore, hot)
		if err := consumer.Start(ctx); err != nil {
			appLog.Error("location consumer", "err", err)
			return 1
		}
		defer consumer.Stop()
		deps.Ingest = consumer
	}
	defer func() {
		if err := events.Close(); err != nil {
			appLog.Warn("lookup publisher close", "err", err)
		}
	}()

	deps.API = &router.API{
		Logger:   appLog,
		Grid:     gridmapper.New(cfg.MaxCells),
		H3:       h3mapper.New(cfg.MaxCells),
		Share:    share.NewService(share.NewStore(kv), policy, cfg.ShareSalt, cfg.ShareBaseURL),
		Devices:  devStore,
		Hot:      hot,
		Events:   events,
		HotLevel: cfg.HotLevel,
		H3Res:    cfg.DefaultH3Res,
	}

	appLog.Info("starting digipin server",
		"addr", cfg.Addr,
		"version", Version,
		"redis", cfg.RedisAddr != "",
		"kafka", cfg.Kafka.Enabled)

	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// pruneLoop drops areas whose score has decayed to noise.
func pruneLoop(ctx context.Context, t *expdecay.Tracker, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t.Prune(0.01)
			observability.SetHotAreas(t.Size())
		}
	}
}
