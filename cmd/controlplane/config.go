package main

import (
	"github.com/hashmarket/hashmarket-core/internal/config"
	"github.com/hashmarket/hashmarket-core/internal/database"
)

// controlplaneConfig holds every environment-driven setting the
// marketplace control plane needs, mirroring the teacher's flat
// loadConfig()/Config shape.
type controlplaneConfig struct {
	Environment    string
	ListenAddress  string
	JWTSecret      string
	MigrationsPath string

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

func loadConfig() controlplaneConfig {
	return controlplaneConfig{
		Environment:    config.GetEnv("ENVIRONMENT", "development"),
		ListenAddress:  config.GetEnv("CONTROL_PLANE_LISTEN_ADDR", ":8080"),
		JWTSecret:      config.GetEnv("JWT_SECRET", "change-me-in-production"),
		MigrationsPath: config.GetEnv("MIGRATIONS_PATH", "migrations"),

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

func initDatabase(cfg controlplaneConfig) (*database.Database, error) {
	return database.New(&database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Database: cfg.DBName,
		Username: cfg.DBUser,
		Password: cfg.DBPassword,
		SSLMode:  cfg.DBSSLMode,
		MaxConns: 50,
		MinConns: 5,
	})
}
