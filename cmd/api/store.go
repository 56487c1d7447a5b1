package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	memeventrepo "github.com/gather-events/events-api/internal/adapters/memory/eventrepo"
	memidempotency "github.com/gather-events/events-api/internal/adapters/memory/idempotency"
	memuserrepo "github.com/gather-events/events-api/internal/adapters/memory/userrepo"
	"github.com/gather-events/events-api/internal/adapters/mongodb"
	mongoeventrepo "github.com/gather-events/events-api/internal/adapters/mongodb/eventrepo"
	mongouserrepo "github.com/gather-events/events-api/internal/adapters/mongodb/userrepo"
	"github.com/gather-events/events-api/internal/adapters/postgres"
	pgeventrepo "github.com/gather-events/events-api/internal/adapters/postgres/eventrepo"
	pgidempotency "github.com/gather-events/events-api/internal/adapters/postgres/idempotency"
	pguserrepo "github.com/gather-events/events-api/internal/adapters/postgres/userrepo"
	"github.com/gather-events/events-api/internal/platform/config"
	"github.com/gather-events/events-api/internal/ports/out/clock"
	"github.com/gather-events/events-api/internal/ports/out/eventrepo"
	"github.com/gather-events/events-api/internal/ports/out/idempotency"
	"github.com/gather-events/events-api/internal/ports/out/userrepo"
)

// store is the selected backend, initialized before the server accepts requests.
type store struct {
	events   eventrepo.Repository
	users    userrepo.Repository
	idem     idempotency.Store
	shutdown func(context.Context) error
	// maintain runs background housekeeping until ctx ends; nil when there is none.
	maintain func(ctx context.Context, logger zerolog.Logger)
}

const idempotencyPurgeInterval = time.Hour

// purgeLoop removes expired idempotency rows. In-memory stores expire on their own.
func purgeLoop(ctx context.Context, s *pgidempotency.Store, logger zerolog.Logger) {
	t := time.NewTicker(idempotencyPurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Purge(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn().Err(err).Msg("purge idempotency keys")
				}
				continue
			}
			if n > 0 {
				logger.Debug().Int64("removed", n).Msg("purged idempotency keys")
			}
		}
	}
}

func openStore(ctx context.Context, cfg config.StorageConfig, clk clock.Clock) (store, error) {
	switch cfg.Backend {
	case config.StoragePostgres:
		h := postgres.NewHandle(cfg.DatabaseURL, postgres.PoolOptions{MaxConns: int32(cfg.MaxConnections)})
		if err := h.Init(ctx); err != nil {
			return store{}, fmt.Errorf("postgres: %w", err)
		}
		pool, err := h.Pool()
		if err != nil {
			return store{}, err
		}
		idem := pgidempotency.NewStore(pool, idempotency.DefaultTTL)
		return store{
			events:   pgeventrepo.NewRepo(pool),
			users:    pguserrepo.NewRepo(pool),
			idem:     idem,
			shutdown: h.Shutdown,
			maintain: func(ctx context.Context, logger zerolog.Logger) {
				purgeLoop(ctx, idem, logger)
			},
		}, nil

	case config.StorageMongo:
		h := mongodb.NewHandle(mongodb.Options{
			URI:              cfg.MongoURI,
			Database:         cfg.MongoDatabase,
			EventsCollection: cfg.MongoEventsCollection,
			UsersCollection:  cfg.MongoUsersCollection,
		})
		if err := h.Init(ctx); err != nil {
			return store{}, fmt.Errorf("mongodb: %w", err)
		}
		evColl, err := h.Events()
		if err != nil {
			return store{}, err
		}
		userColl, err := h.Users()
		if err != nil {
			return store{}, err
		}
		return store{
			events:   mongoeventrepo.NewRepo(evColl),
			users:    mongouserrepo.NewRepo(userColl),
			idem:     memidempotency.NewStoreWithTTL(idempotency.DefaultTTL, clk),
			shutdown: h.Shutdown,
		}, nil

	default:
		return store{
			events:   memeventrepo.NewRepo(),
			users:    memuserrepo.NewRepo(),
			idem:     memidempotency.NewStoreWithTTL(idempotency.DefaultTTL, clk),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}
}
