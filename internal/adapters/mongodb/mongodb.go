package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotInitialized is returned when collections are requested before Init.
var ErrNotInitialized = errors.New("mongodb handle not initialized")

type Options struct {
	URI              string
	Database         string
	EventsCollection string
	UsersCollection  string
	ConnectTimeout   time.Duration
}

// Handle owns the process-wide client. Init connects, pings and ensures indexes
// exactly once; Shutdown disconnects.
type Handle struct {
	opts Options

	once    sync.Once
	initErr error

	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

func NewHandle(opts Options) *Handle {
	if opts.EventsCollection == "" {
		opts.EventsCollection = "events"
	}
	if opts.UsersCollection == "" {
		opts.UsersCollection = "users"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	return &Handle{opts: opts}
}

func (h *Handle) Init(ctx context.Context) error {
	h.once.Do(func() {
		h.initErr = h.connect(ctx)
	})
	return h.initErr
}

func (h *Handle) connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(h.opts.URI))
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(h.opts.Database)
	if err := ensureIndexes(ctx, db, h.opts); err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}

	h.mu.Lock()
	h.client = client
	h.db = db
	h.mu.Unlock()
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, opts Options) error {
	_, err := db.Collection(opts.UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}
	_, err = db.Collection(opts.EventsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("events_date_idx"),
	})
	if err != nil {
		return fmt.Errorf("create events date index: %w", err)
	}
	return nil
}

func (h *Handle) Events() (*mongo.Collection, error) {
	return h.collection(h.opts.EventsCollection)
}

func (h *Handle) Users() (*mongo.Collection, error) {
	return h.collection(h.opts.UsersCollection)
}

func (h *Handle) collection(name string) (*mongo.Collection, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.db == nil {
		return nil, ErrNotInitialized
	}
	return h.db.Collection(name), nil
}

func (h *Handle) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	client := h.client
	h.client = nil
	h.db = nil
	h.mu.Unlock()
	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	return nil
}
