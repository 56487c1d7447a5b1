// Package testutil opens an initialized MongoDB handle for adapter tests.
// Tests are skipped unless TEST_MONGODB_URI is set.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gather-events/events-api/internal/adapters/mongodb"
)

// OpenHandle connects to a fresh, uniquely named database that is dropped on cleanup.
func OpenHandle(t *testing.T) *mongodb.Handle {
	t.Helper()

	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("set TEST_MONGODB_URI to run MongoDB tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := "events_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	h := mongodb.NewHandle(mongodb.Options{URI: uri, Database: dbName})
	if err := h.Init(ctx); err != nil {
		t.Fatalf("init mongodb: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if events, err := h.Events(); err == nil {
			_ = events.Database().Drop(ctx)
		}
		_ = h.Shutdown(ctx)
	})
	return h
}
