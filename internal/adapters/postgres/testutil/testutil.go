// Package testutil opens a migrated Postgres pool for adapter tests.
//
// TEST_DATABASE_URL selects an existing database. Otherwise, when TESTCONTAINERS=1,
// a throwaway container is started. With neither set the calling test is skipped.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	postgres "github.com/gather-events/events-api/internal/adapters/postgres"
)

var migrateOnce sync.Map // database url -> *onceResult

type onceResult struct {
	once sync.Once
	err  error
}

func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		if os.Getenv("TESTCONTAINERS") != "1" {
			t.Skip("set TEST_DATABASE_URL or TESTCONTAINERS=1 to run Postgres tests")
		}
		dbURL = startContainer(ctx, t)
	}

	v, _ := migrateOnce.LoadOrStore(dbURL, &onceResult{})
	res := v.(*onceResult)
	res.once.Do(func() {
		res.err = postgres.MigrateUp(dbURL)
	})
	if res.err != nil {
		t.Fatalf("migrate: %v", res.err)
	}

	pool, err := postgres.NewPool(ctx, dbURL, postgres.PoolOptions{MaxConns: 16})
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func startContainer(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tcpostgres.Run(
		ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("events"),
		tcpostgres.WithUsername("events"),
		tcpostgres.WithPassword("events_dev"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	testcontainers.CleanupContainer(t, container)

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("container connection string: %v", err)
	}
	return dbURL
}
