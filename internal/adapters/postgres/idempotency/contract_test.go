package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/gather-events/events-api/internal/adapters/contracttest"
	"github.com/gather-events/events-api/internal/adapters/postgres/testutil"
	idempotencyport "github.com/gather-events/events-api/internal/ports/out/idempotency"
)

func TestContract_PostgresIdempotencyStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewStore(pool, idempotencyport.DefaultTTL), nil
	})
}

func TestStore_IgnoresAndPurgesExpired(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	ctx := context.Background()
	s := NewStore(pool, time.Hour)

	fp := idempotencyport.Fingerprint{Key: "expired-key", Subject: "sub-old", Method: "POST", Route: "/events"}
	if err := s.Put(ctx, fp, idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{}`),
		CreatedAt:   time.Now().Add(-2 * time.Hour).UTC(),
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, err := s.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get expired: ok=%v err=%v", ok, err)
	}
	n, err := s.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n < 1 {
		t.Fatalf("Purge removed %d rows, want >= 1", n)
	}
}

func TestStore_PutIfAbsentReclaimsExpired(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	ctx := context.Background()
	s := NewStore(pool, time.Hour)

	fp := idempotencyport.Fingerprint{Key: "reclaim-key", Subject: "sub-old", Method: "POST", Route: "/events"}
	if err := s.Put(ctx, fp, idempotencyport.Record{
		ContentType: "text/plain",
		Body:        []byte("stale"),
		CreatedAt:   time.Now().Add(-2 * time.Hour).UTC(),
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, stored, err := s.PutIfAbsent(ctx, fp, idempotencyport.Record{ContentType: "text/plain", Body: []byte("fresh")})
	if err != nil || !stored {
		t.Fatalf("PutIfAbsent over expired row: stored=%v err=%v", stored, err)
	}
	got, ok, err := s.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "fresh" {
		t.Fatalf("Get after reclaim: ok=%v err=%v body=%q", ok, err, got.Body)
	}
	if time.Since(got.CreatedAt) > time.Minute {
		t.Fatalf("CreatedAt=%v, want stamped by the database on reclaim", got.CreatedAt)
	}
}
