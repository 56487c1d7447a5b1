package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/idempotency"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 255
)

// replayOutcome is what a keyed request should do before reaching the service.
type replayOutcome int

const (
	replayProceed replayOutcome = iota
	replayStored
	replayConflict
)

// idempotentCall ties one keyed request to its stored records.
// Replay if same subject+key+route+body; reject a different body under the same key.
type idempotentCall struct {
	store idempotency.Store
	meta  idempotency.Fingerprint
	resp  idempotency.Fingerprint
}

func newIdempotentCall(store idempotency.Store, r *http.Request, subject domain.SubjectID, route string, body []byte) (*idempotentCall, bool) {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if store == nil || key == "" {
		return nil, false
	}
	sum := sha256.Sum256(body)
	meta := idempotency.Fingerprint{
		Key:     idempotency.Key(key),
		Subject: subject,
		Method:  r.Method,
		Route:   route,
	}
	resp := meta
	resp.BodyHash = hex.EncodeToString(sum[:])
	return &idempotentCall{store: store, meta: meta, resp: resp}, true
}

func validIdempotencyKey(r *http.Request) bool {
	return len(strings.TrimSpace(r.Header.Get(idempotencyHeader))) <= maxIdempotencyKey
}

// check claims the key for this body when it is new, otherwise compares
// against the body that claimed it and looks for a replayable response.
func (c *idempotentCall) check(ctx context.Context) (replayOutcome, idempotency.Record, error) {
	claim := idempotency.Record{
		ContentType: "text/plain",
		Body:        []byte(c.resp.BodyHash),
	}
	meta, claimed, err := c.store.PutIfAbsent(ctx, c.meta, claim)
	if err != nil {
		return replayProceed, idempotency.Record{}, err
	}
	if !claimed && string(meta.Body) != c.resp.BodyHash {
		return replayConflict, idempotency.Record{}, nil
	}

	stored, ok, err := c.store.Get(ctx, c.resp)
	if err != nil {
		return replayProceed, idempotency.Record{}, err
	}
	if ok && stored.StatusCode != 0 && strings.HasPrefix(stored.ContentType, "application/json") {
		return replayStored, stored, nil
	}
	return replayProceed, idempotency.Record{}, nil
}

func (c *idempotentCall) remember(ctx context.Context, rec idempotency.Record) error {
	return c.store.Put(ctx, c.resp, rec)
}

func writeReplay(w http.ResponseWriter, rec idempotency.Record) {
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.StatusCode)
	_, _ = w.Write(rec.Body)
}
