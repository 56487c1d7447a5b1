package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gather-events/events-api/internal/ports/out/idempotency"
)

// Store is a Postgres implementation of idempotency.Store.
// Records older than the TTL are ignored on read and removed by Purge.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND subject = $2
		  AND method = $3
		  AND route = $4
		  AND body_hash = $5
		  AND ($6::bigint = 0 OR created_at > now() - make_interval(secs => $6::bigint))
	`,
		string(fp.Key),
		string(fp.Subject),
		fp.Method,
		fp.Route,
		fp.BodyHash,
		int64(s.ttl/time.Second),
	)
	var rec idempotency.Record
	if err := row.Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

const insertRecord = `
	INSERT INTO idempotency_keys (
		idempotency_key,
		subject,
		method,
		route,
		body_hash,
		status_code,
		content_type,
		body,
		created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,COALESCE($9::timestamptz, now()))
	ON CONFLICT (idempotency_key, subject, method, route, body_hash)
	DO UPDATE SET
		status_code = EXCLUDED.status_code,
		content_type = EXCLUDED.content_type,
		body = EXCLUDED.body,
		created_at = EXCLUDED.created_at
`

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := s.pool.Exec(ctx, insertRecord, recordArgs(fp, rec)...)
	return err
}

// maxClaimAttempts bounds the retries when a conflicting row expires or is
// purged between the insert and the read back.
const maxClaimAttempts = 3

func (s *Store) PutIfAbsent(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	// An existing row is only overwritten once it has expired.
	q := insertRecord + `
	WHERE $10::bigint > 0
	  AND idempotency_keys.created_at <= now() - make_interval(secs => $10::bigint)
	RETURNING true`
	args := append(recordArgs(fp, rec), int64(s.ttl/time.Second))
	for range maxClaimAttempts {
		var inserted bool
		err := s.pool.QueryRow(ctx, q, args...).Scan(&inserted)
		if err == nil {
			return idempotency.Record{}, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, err
		}
		cur, ok, err := s.Get(ctx, fp)
		if err != nil {
			return idempotency.Record{}, false, err
		}
		if ok {
			return cur, false, nil
		}
	}
	return idempotency.Record{}, false, errors.New("idempotency claim kept racing with expiry")
}

func recordArgs(fp idempotency.Fingerprint, rec idempotency.Record) []any {
	var createdAt any
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt.UTC()
	}
	return []any{
		string(fp.Key),
		string(fp.Subject),
		fp.Method,
		fp.Route,
		fp.BodyHash,
		rec.StatusCode,
		rec.ContentType,
		rec.Body,
		createdAt,
	}
}

// Purge deletes expired records and reports how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	if s.ttl <= 0 {
		return 0, nil
	}
	ct, err := s.pool.Exec(ctx, `
		DELETE FROM idempotency_keys
		WHERE created_at <= now() - make_interval(secs => $1::bigint)
	`, int64(s.ttl/time.Second))
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
