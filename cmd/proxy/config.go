package main

import (
	"time"

	"github.com/hashmarket/hashmarket-core/internal/config"
	"github.com/hashmarket/hashmarket-core/internal/database"
)

// proxyConfig holds every environment-driven setting this region's relay
// instance needs, mirroring the teacher's flat loadConfig()/Config shape.
type proxyConfig struct {
	Region               string
	ListenAddress        string
	MetricsListenAddress string
	ControlPlaneURL      string

	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration
	DialTimeout      time.Duration

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	CacheKeyPrefix string
}

func loadConfig() proxyConfig {
	return proxyConfig{
		Region:               config.GetEnv("PROXY_REGION", "default"),
		ListenAddress:        config.GetEnv("PROXY_LISTEN_ADDR", ":3333"),
		MetricsListenAddress: config.GetEnv("PROXY_METRICS_LISTEN_ADDR", ":9333"),
		ControlPlaneURL:      config.GetEnv("CONTROL_PLANE_URL", "http://localhost:8080"),

		HandshakeTimeout: config.GetEnvDuration("PROXY_HANDSHAKE_TIMEOUT", 30*time.Second),
		IdleTimeout:      config.GetEnvDuration("PROXY_IDLE_TIMEOUT", 600*time.Second),
		DialTimeout:      config.GetEnvDuration("PROXY_DIAL_TIMEOUT", 10*time.Second),

		DBHost:     config.GetEnv("DB_HOST", "localhost"),
		DBPort:     config.GetEnvInt("DB_PORT", 5432),
		DBName:     config.GetEnv("DB_NAME", "hashmarket"),
		DBUser:     config.GetEnv("DB_USER", "hashmarket"),
		DBPassword: config.GetEnv("DB_PASSWORD", ""),
		DBSSLMode:  config.GetEnv("DB_SSLMODE", "disable"),

		RedisAddr:      config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:        config.GetEnvInt("REDIS_DB", 0),
		CacheKeyPrefix: config.GetEnv("CACHE_KEY_PREFIX", "hashmarket:"),
	}
}

func initDatabase(cfg proxyConfig) (*database.Database, error) {
	return database.New(&database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Database: cfg.DBName,
		Username: cfg.DBUser,
		Password: cfg.DBPassword,
		SSLMode:  cfg.DBSSLMode,
		MaxConns: 20,
		MinConns: 2,
	})
}
