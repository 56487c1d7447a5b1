package idempotency

import (
	"context"
	"time"

	"github.com/gather-events/events-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes.
//
// Strategy: key + subject + route + request body hash.
// Route is HTTP method + path template (e.g. "POST /events").
// The metadata record for a key is stored with an empty BodyHash and holds the body hash
// of the first request; the replayable response is stored under the full fingerprint.
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
// A zero CreatedAt is stamped by the store from its own clock, so expiry is
// always measured against the same time source that judges it.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// DefaultTTL is how long a stored response stays replayable.
const DefaultTTL = 24 * time.Hour

// Store persists idempotency records for replaying safe responses on retries.
// Records older than the store's TTL are reported as absent.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
	// PutIfAbsent stores rec only when no live record exists for fp.
	// When one does, it is returned with stored == false and left untouched.
	PutIfAbsent(ctx context.Context, fp Fingerprint, rec Record) (existing Record, stored bool, err error)
}
