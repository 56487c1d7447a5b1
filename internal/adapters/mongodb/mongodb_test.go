package mongodb

import (
	"context"
	"errors"
	"testing"
)

func TestHandle_CollectionsBeforeInit(t *testing.T) {
	t.Parallel()

	h := NewHandle(Options{URI: "mongodb://unused", Database: "db"})
	if _, err := h.Events(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Events() err=%v, want %v", err, ErrNotInitialized)
	}
	if _, err := h.Users(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Users() err=%v, want %v", err, ErrNotInitialized)
	}
	if err := h.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() before Init err=%v", err)
	}
	if h.opts.EventsCollection != "events" || h.opts.UsersCollection != "users" {
		t.Fatalf("default collections=%q/%q", h.opts.EventsCollection, h.opts.UsersCollection)
	}
}
