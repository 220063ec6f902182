// Command proxy runs the regional Stratum relay: it accepts miner
// connections, resolves each worker id against the control plane, dials
// the order's real destination pool, and forwards traffic between the
// two while recording shares and hashrate (spec.md §5).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hashmarket/hashmarket-core/internal/cache"
	"github.com/hashmarket/hashmarket-core/internal/config"
	"github.com/hashmarket/hashmarket-core/internal/controlplane"
	"github.com/hashmarket/hashmarket-core/internal/metrics"
	"github.com/hashmarket/hashmarket-core/internal/shares"
	"github.com/hashmarket/hashmarket-core/internal/stratum"
)

func main() {
	log.Println("starting hashmarket proxy")

	cfg := loadConfig()

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	shareRepo := shares.NewPostgresRepository(db.Pool.SqlxDB())
	shareWriter := shares.NewWriter(shares.DefaultBatchConfig(), shareRepo, nil)
	defer shareWriter.Stop()

	cpClient := controlplane.NewClient(cfg.ControlPlaneURL, nil)

	dialer := stratum.NetPoolDialer{DialTimeout: cfg.DialTimeout}

	engineCfg := stratum.DefaultConfig()
	engineCfg.ListenAddress = cfg.ListenAddress
	if cfg.HandshakeTimeout > 0 {
		engineCfg.HandshakeTimeout = cfg.HandshakeTimeout
	}
	if cfg.IdleTimeout > 0 {
		engineCfg.IdleTimeout = cfg.IdleTimeout
	}
	if cfg.DialTimeout > 0 {
		engineCfg.DialTimeout = cfg.DialTimeout
	}

	promRegistry := metrics.New("proxy")

	engine := stratum.NewEngine(engineCfg, cpClient, dialer, shareWriter, nil).WithMetrics(promRegistry)
	if err := engine.Start(); err != nil {
		log.Fatalf("failed to start relay engine: %v", err)
	}
	log.Printf("relay engine listening on %s, region=%s", cfg.ListenAddress, cfg.Region)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promRegistry.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsListenAddress, Handler: metricsMux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	redisCache, err := cache.NewRedisCache(&cache.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		KeyPrefix:     cfg.CacheKeyPrefix,
		SessionTTL:    10 * time.Minute,
		LockTTL:       5 * time.Second,
	})
	if err != nil {
		log.Printf("warning: session route cache unavailable: %v", err)
	} else {
		defer redisCache.Close()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down proxy")
	if err := engine.Stop(); err != nil {
		log.Printf("error stopping relay engine: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error stopping metrics server: %v", err)
	}
}
