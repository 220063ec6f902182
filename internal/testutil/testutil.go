// Package testutil provides real Postgres/Redis containers for the few
// tests in this module that need more than sqlmock/miniredis — chiefly
// the migration/repository round-trip test in internal/orders.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hashmarket/hashmarket-core/internal/database"
)

// TestDatabase is a running Postgres container plus an open connection.
type TestDatabase struct {
	Container testcontainers.Container
	DB        *sql.DB
	URL       string
	Config    *database.Config
}

// TestRedis is a running Redis container plus a connected client.
type TestRedis struct {
	Container testcontainers.Container
	Client    *redis.Client
	URL       string
}

// SetupTestDatabase starts a disposable Postgres container and returns an
// open connection to it, torn down automatically at test end.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "hashmarket_test",
			"POSTGRES_USER":     "hashmarket",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	dbURL := fmt.Sprintf("postgres://hashmarket:test_password@%s:%s/hashmarket_test?sslmode=disable",
		host, mappedPort.Port())

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return db.Ping() == nil
	}, 30*time.Second, 1*time.Second, "database should be ready")

	t.Cleanup(func() {
		db.Close()
		container.Terminate(ctx)
	})

	portNum, err := strconv.Atoi(mappedPort.Port())
	require.NoError(t, err)

	dbCfg := &database.Config{
		Host:     host,
		Port:     portNum,
		Database: "hashmarket_test",
		Username: "hashmarket",
		Password: "test_password",
		SSLMode:  "disable",
	}

	return &TestDatabase{Container: container, DB: db, URL: dbURL, Config: dbCfg}
}

// SetupTestRedis starts a disposable Redis container and returns a
// connected client, torn down automatically at test end.
func SetupTestRedis(t *testing.T) *TestRedis {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	addr := fmt.Sprintf("%s:%s", host, mappedPort.Port())
	client := redis.NewClient(&redis.Options{Addr: addr})

	require.Eventually(t, func() bool {
		return client.Ping(ctx).Err() == nil
	}, 30*time.Second, 1*time.Second, "redis should be ready")

	t.Cleanup(func() {
		client.Close()
		container.Terminate(ctx)
	})

	return &TestRedis{Container: container, Client: client, URL: "redis://" + addr}
}

// BenchmarkHelper runs a function a fixed number of times after a warmup
// period, for quick ad-hoc timing checks outside the go test -bench harness.
type BenchmarkHelper struct {
	warmup     int
	iterations int
}

// NewBenchmarkHelper returns a BenchmarkHelper with the teacher's default
// warmup/iteration counts.
func NewBenchmarkHelper() *BenchmarkHelper {
	return &BenchmarkHelper{warmup: 10, iterations: 100}
}

// Run executes fn through the warmup phase and then the timed iterations,
// returning the total elapsed time for the timed portion.
func (b *BenchmarkHelper) Run(name string, fn func()) time.Duration {
	for i := 0; i < b.warmup; i++ {
		fn()
	}

	start := time.Now()
	for i := 0; i < b.iterations; i++ {
		fn()
	}
	return time.Since(start)
}
