package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/gather-events/events-api/internal/ports/out/clock"
	"github.com/gather-events/events-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// Expired records are dropped lazily on Get and in bulk on Put.
// It is safe for concurrent use.
type Store struct {
	mu sync.Mutex
	m  map[idempotency.Fingerprint]idempotency.Record

	ttl   time.Duration
	clock clock.Clock
	puts  int
}

// sweepEvery bounds how often Put scans for expired records.
const sweepEvery = 256

// NewStore returns a store with the default TTL and wall clock.
func NewStore() *Store {
	return NewStoreWithTTL(idempotency.DefaultTTL, clock.Func(time.Now))
}

func NewStoreWithTTL(ttl time.Duration, clk clock.Clock) *Store {
	return &Store{
		m:     make(map[idempotency.Fingerprint]idempotency.Record),
		ttl:   ttl,
		clock: clk,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[fp]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	if s.expired(rec) {
		delete(s.m, fp)
		return idempotency.Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(fp, rec)
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.m[fp]; ok && !s.expired(cur) {
		return cur, false, nil
	}
	s.put(fp, rec)
	return idempotency.Record{}, true, nil
}

// put must be called with s.mu held.
func (s *Store) put(fp idempotency.Fingerprint, rec idempotency.Record) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock.Now()
	}
	s.m[fp] = rec
	s.puts++
	if s.puts%sweepEvery == 0 {
		for k, v := range s.m {
			if s.expired(v) {
				delete(s.m, k)
			}
		}
	}
}

// Len reports the number of records held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *Store) expired(rec idempotency.Record) bool {
	return s.ttl > 0 && s.clock.Now().Sub(rec.CreatedAt) > s.ttl
}
