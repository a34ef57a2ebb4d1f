//go:build integration

package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/atttc/ladder/internal/app"
	"github.com/atttc/ladder/internal/auth"
	"github.com/atttc/ladder/internal/infra"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	TestJWTSecret = "integration-test-secret-0123456789abcdef"
	TestDBName    = "ladder_test"
	TestDBUser    = "ladder"
	TestDBPass    = "ladder"
	postgresImage = "postgres:16-alpine"
)

// TestEnv holds all resources for an integration test.
type TestEnv struct {
	Server *httptest.Server
	Pool   *pgxpool.Pool
	App    *app.App
	JWTMgr *auth.JWTManager
	t      *testing.T
}

var (
	sharedPool *pgxpool.Pool
	poolOnce   sync.Once
	poolErr    error
)

// startPostgres runs a throwaway Postgres container. The testcontainers reaper
// removes it when the test binary exits.
func startPostgres(ctx context.Context) (string, error) {
	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase(TestDBName),
		postgres.WithUsername(TestDBUser),
		postgres.WithPassword(TestDBPass),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", fmt.Errorf("postgres connection string: %w", err)
	}
	return dsn, nil
}

func getSharedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	poolOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		dsn, err := startPostgres(ctx)
		if err != nil {
			poolErr = err
			return
		}
		if err := infra.RunMigrations(dsn, quietLogger()); err != nil {
			poolErr = fmt.Errorf("run migrations: %w", err)
			return
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			poolErr = fmt.Errorf("parse pool config: %w", err)
			return
		}
		poolCfg.MaxConns = 10
		poolCfg.MinConns = 1

		sharedPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			poolErr = fmt.Errorf("create pool: %w", err)
		}
	})

	if poolErr != nil {
		t.Fatalf("failed to initialize test pool: %v", poolErr)
	}
	return sharedPool
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// NewTestEnv creates a test environment with an httptest.Server backed by the
// real router and a migrated Postgres.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	pool := getSharedPool(t)
	cfg := &infra.Config{
		JWTSecret:           TestJWTSecret,
		JWTPlayerExpiry:     24 * time.Hour,
		JWTAdminExpiry:      8 * time.Hour,
		CreditRetryAttempts: 3,
		LoginRatePerMinute:  100,
		CORSAllowedOrigins:  "*",
	}
	a := app.New(cfg, pool, prometheus.NewRegistry(), quietLogger())
	server := httptest.NewServer(a.Router)

	env := &TestEnv{
		Server: server,
		Pool:   pool,
		App:    a,
		JWTMgr: auth.NewJWTManager(cfg.JWTSecret, cfg.JWTPlayerExpiry, cfg.JWTAdminExpiry),
		t:      t,
	}

	t.Cleanup(func() {
		server.Close()
		env.CleanAll()
	})

	// Clean before test to ensure isolation
	env.CleanAll()

	return env
}
