package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestAsPgError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: UniqueViolationCode, ConstraintName: "users_email_unique"})
	pe, ok := AsPgError(wrapped)
	if !ok || pe.Code != UniqueViolationCode || pe.ConstraintName != "users_email_unique" {
		t.Fatalf("AsPgError()=%v,%v", pe, ok)
	}
	if _, ok := AsPgError(errors.New("plain")); ok {
		t.Fatalf("AsPgError(plain) ok=true")
	}
}

func TestHandle_PoolBeforeInit(t *testing.T) {
	t.Parallel()

	h := NewHandle("postgres://unused", PoolOptions{})
	if _, err := h.Pool(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Pool() err=%v, want %v", err, ErrNotInitialized)
	}
	if err := h.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() before Init err=%v", err)
	}
}

func TestMigrations_Embedded(t *testing.T) {
	t.Parallel()

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries)%2 != 0 || len(entries) == 0 {
		t.Fatalf("expected paired up/down migrations, got %d files", len(entries))
	}
}
