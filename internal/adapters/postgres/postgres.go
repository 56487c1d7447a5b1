package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const UniqueViolationCode = "23505"

// ErrNotInitialized is returned when the pool is used before Init.
var ErrNotInitialized = errors.New("postgres handle not initialized")

// AsPgError unwraps err to a Postgres server error.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

type PoolOptions struct {
	MaxConns    int32
	PingTimeout time.Duration
}

// NewPool connects and pings. The caller owns the pool.
func NewPool(ctx context.Context, databaseURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Handle owns the process-wide pool. Init connects exactly once; Shutdown closes it.
// Repositories are built from Pool after Init returns.
type Handle struct {
	url  string
	opts PoolOptions

	once    sync.Once
	initErr error

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

func NewHandle(databaseURL string, opts PoolOptions) *Handle {
	return &Handle{url: databaseURL, opts: opts}
}

func (h *Handle) Init(ctx context.Context) error {
	h.once.Do(func() {
		pool, err := NewPool(ctx, h.url, h.opts)
		if err != nil {
			h.initErr = err
			return
		}
		h.mu.Lock()
		h.pool = pool
		h.mu.Unlock()
	})
	return h.initErr
}

// Pool returns the connected pool or ErrNotInitialized.
func (h *Handle) Pool() (*pgxpool.Pool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.pool == nil {
		return nil, ErrNotInitialized
	}
	return h.pool, nil
}

func (h *Handle) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	pool := h.pool
	h.pool = nil
	h.mu.Unlock()
	if pool == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		pool.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close pool: %w", ctx.Err())
	}
}
