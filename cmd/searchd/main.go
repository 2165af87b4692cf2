// Command searchd serves the search API over an existing on-disk index.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maryam-tariqq/DSA-Project/internal/analytics"
	"github.com/maryam-tariqq/DSA-Project/internal/index"
	"github.com/maryam-tariqq/DSA-Project/internal/search"
	searchcache "github.com/maryam-tariqq/DSA-Project/internal/search/cache"
	"github.com/maryam-tariqq/DSA-Project/internal/server"
	"github.com/maryam-tariqq/DSA-Project/pkg/config"
	"github.com/maryam-tariqq/DSA-Project/pkg/health"
	"github.com/maryam-tariqq/DSA-Project/pkg/kafka"
	"github.com/maryam-tariqq/DSA-Project/pkg/logger"
	"github.com/maryam-tariqq/DSA-Project/pkg/metrics"
	pkgredis "github.com/maryam-tariqq/DSA-Project/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Index.DataDir)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	idx, err := index.Open(cfg.Index, m)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	defer idx.Close()

	var queryCache *searchcache.Cache
	var redisClient *pkgredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = searchcache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var collector *analytics.Collector
	if cfg.Analytics.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka)
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		defer collector.Close()
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topic)
	}

	engine := search.New(idx, cfg.Search, m, queryCache, collector)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats := idx.Stats()
		if stats.Quarantined > 0 {
			return health.ComponentHealth{
				Status:  health.StatusDegraded,
				Message: fmt.Sprintf("%d barrels quarantined", stats.Quarantined),
			}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", stats.Documents, stats.Terms),
		}
	})
	if redisClient != nil {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	srv := server.New(cfg.Server, engine, idx, checker, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}
	slog.Info("search service stopped")
}
