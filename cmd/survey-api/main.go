package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/survey-stats/internal/cache"
	"github.com/mohammed-shakir/survey-stats/internal/cache/redisstore"
	"github.com/mohammed-shakir/survey-stats/internal/calc"
	"github.com/mohammed-shakir/survey-stats/internal/core/config"
	"github.com/mohammed-shakir/survey-stats/internal/core/health"
	"github.com/mohammed-shakir/survey-stats/internal/core/httpclient"
	"github.com/mohammed-shakir/survey-stats/internal/core/observability"
	"github.com/mohammed-shakir/survey-stats/internal/core/server"
	"github.com/mohammed-shakir/survey-stats/internal/loader"
	"github.com/mohammed-shakir/survey-stats/internal/logger"
	"github.com/mohammed-shakir/survey-stats/internal/metrics"
	"github.com/mohammed-shakir/survey-stats/internal/storage"
	"github.com/mohammed-shakir/survey-stats/internal/survey"
	"github.com/mohammed-shakir/survey-stats/pkg/invalidation/kafka"
)

const serviceName = "survey-api"

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// overriding listen address via flag
	addrFlag := flag.String("addr", "", "listen address")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   serviceName,
		Component: "api",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.SetService(serviceName)
	observability.ExposeBuildInfo(Version)
	appLog.Info("starting survey api",
		"addr", cfg.Addr,
		"version", Version,
		"storage", cfg.StorageDriver,
		"bucket", cfg.StorageBucket)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	origin, err := storage.New(cfg.StorageDriver, cfg, appLog, httpclient.NewOutbound(
		httpclient.WithTimeout(cfg.StorageTimeout),
		httpclient.WithUserAgent(httpclient.DefaultUserAgent+"/"+Version),
	))
	if err != nil {
		appLog.Error("storage setup failed", "err", err)
		return 1
	}

	var (
		shared  cache.Store
		pingers = map[string]health.Pinger{}
	)
	if cfg.RedisAddr != "" {
		rc, err := redisstore.New(ctx, cfg.RedisAddr, redisstore.WithMaxObjectBytes(cfg.RedisMaxObject))
		if err != nil {
			appLog.Error("redis connect failed", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = rc.Close() }()
		shared = rc
		pingers["redis"] = rc
	}
	fetcher := storage.NewCached(origin, shared, storage.CachedConfig{
		Bucket:    cfg.StorageBucket,
		Size:      cfg.FetchCacheSize,
		TTL:       cfg.FetchCacheTTL,
		OpTimeout: cfg.CacheOpTimeout,
	}, appLog)

	sets := calc.DefaultOrganismSets()
	if cfg.OrganismSetsFile != "" {
		if sets, err = calc.LoadOrganismSets(cfg.OrganismSetsFile); err != nil {
			appLog.Error("organism sets", "err", err)
			return 1
		}
	}

	if cfg.Metrics.Enabled {
		p := metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    cfg.Metrics.Addr,
			Path:    cfg.Metrics.Path,
			Build:   metrics.BuildInfo{Version: Version, StorageDriver: cfg.StorageDriver},
		})
		observability.Init(p.Registerer(), true)
		go func() {
			if err := p.Serve(ctx, appLog); err != nil {
				appLog.Error("metrics server exited", "err", err)
			}
		}()
	}

	deps := server.Deps{
		Service: survey.New(loader.New(fetcher, appLog), calc.NewEngine(sets, appLog), appLog),
		Pingers: pingers,
	}

	inval := kafka.New(kafka.FromConfig(cfg.Invalidation), fetcher, kafka.Options{Logger: appLog})
	if err := inval.Start(ctx); err != nil {
		appLog.Error("invalidation runner failed to start", "err", err)
		return 1
	}
	defer inval.Stop()
	if cfg.Invalidation.Enabled && cfg.Invalidation.Driver == string(kafka.DriverKafka) {
		deps.Ready = inval
	}

	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
