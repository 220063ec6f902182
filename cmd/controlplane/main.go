// Command controlplane runs the marketplace's control plane: order
// lifecycle, escrow, dispute resolution, and the ingress endpoints every
// regional proxy calls on connect/share/hashrate/disconnect
// (spec.md §4, §5).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/hashmarket/hashmarket-core/internal/api"
	"github.com/hashmarket/hashmarket-core/internal/auth"
	"github.com/hashmarket/hashmarket-core/internal/cache"
	"github.com/hashmarket/hashmarket-core/internal/config"
	"github.com/hashmarket/hashmarket-core/internal/controlplane"
	"github.com/hashmarket/hashmarket-core/internal/database"
	"github.com/hashmarket/hashmarket-core/internal/ledger"
	"github.com/hashmarket/hashmarket-core/internal/metrics"
	"github.com/hashmarket/hashmarket-core/internal/orders"
	"github.com/hashmarket/hashmarket-core/internal/shares"
)

func main() {
	log.Println("starting hashmarket control plane")

	cfg := loadConfig()

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db.Config, cfg.MigrationsPath); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	redisCache, err := cache.NewRedisCache(&cache.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		KeyPrefix:     cfg.CacheKeyPrefix,
		SessionTTL:    10 * time.Minute,
		LockTTL:       5 * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to connect to redis cache: %v", err)
	}
	defer redisCache.Close()
	lock := cache.NewDistributedLock(redisCache)

	sqlxDB := db.Pool.SqlxDB()

	orderRepo := orders.NewPostgresRepository(sqlxDB)
	ledgerRepo := ledger.NewPostgresRepository(sqlxDB)
	shareRepo := shares.NewPostgresRepository(sqlxDB)
	_ = shareRepo // not used by any control-plane route; the dispute queue reads only orderRepo.

	promRegistry := metrics.New("controlplane")

	escrow := ledger.NewService(ledgerRepo, lock).WithMetrics(promRegistry)
	machine := orders.NewMachine(orderRepo, escrow).WithMetrics(promRegistry)

	reviewQueue := orders.NewReviewQueue(orderRepo, machine, orders.DefaultReviewInterval, nil)
	reviewQueue.Start()
	defer reviewQueue.Stop()

	cpService := controlplane.NewService(orderRepo, machine, nil)

	adminAuth := auth.NewAdminAuthService(auth.NewPostgreSQLUserRepository(db.Pool.DB()), cfg.JWTSecret)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC(), "service": "hashmarket-controlplane"})
	})
	router.GET("/metrics", gin.WrapH(promRegistry.Handler()))

	internalGroup := router.Group("/internal/v1")
	api.RegisterIngressRoutes(internalGroup, cpService)

	adminGroup := router.Group("/api/v1/admin")
	api.RegisterDisputeRoutes(adminGroup, adminAuth, orderRepo, machine)

	srv := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: router,
	}

	go func() {
		log.Printf("control plane listening on %s", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("control plane server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down control plane")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during server shutdown: %v", err)
	}
}
