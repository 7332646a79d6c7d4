// Package mongostore implements the catalog repositories on MongoDB.
package mongostore

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

	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/repository"
)

// Collection names
const (
	CountersCollection     = "counters"
	UmkmCollection         = "umkm"
	DestinationsCollection = "destinations"
	FavoritesCollection    = "favorites"
)

// Config holds MongoDB adapter configuration.
type Config struct {
	URL              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
	UseTransactions  bool
}

// Adapter owns the client and hands out collections.
type Adapter struct {
	client   *mongo.Client
	database string
	logger   logging.Logger
	timeout  time.Duration
	useTx    bool
	mu       sync.RWMutex
	closed   bool
}

// NewAdapter connects and pings the primary.
func NewAdapter(cfg Config, log logging.Logger) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mongodb URL is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	// free-form JSON (destination information) decodes back into plain maps
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("MongoDB connection established", "database", cfg.Database)
	return &Adapter{
		client:   client,
		database: cfg.Database,
		logger:   log,
		timeout:  cfg.OperationTimeout,
		useTx:    cfg.UseTransactions,
	}, nil
}

func (a *Adapter) Database() *mongo.Database {
	return a.client.Database(a.database)
}

func (a *Adapter) Collection(name string) *mongo.Collection {
	return a.Database().Collection(name)
}

func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return fmt.Errorf("mongodb adapter is closed")
	}
	return a.client.Ping(ctx, readpref.Primary())
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close mongodb connection: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique id indexes and the compound listing indexes.
func (a *Adapter) EnsureIndexes(ctx context.Context) error {
	listingIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name_lower", Value: 1}, {Key: "id", Value: 1}}},
		{Keys: bson.D{{Key: "category_lower", Value: 1}, {Key: "id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}}},
	}

	for _, coll := range []string{UmkmCollection, DestinationsCollection} {
		if _, err := a.Collection(coll).Indexes().CreateMany(ctx, listingIndexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}

	_, err := a.Collection(FavoritesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "destination_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "name_lower", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create favorites indexes: %w", err)
	}
	return nil
}

// WithTransaction runs fn in a session transaction when enabled. Standalone
// servers do not support transactions, so without it fn runs directly.
func (a *Adapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !a.useTx || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := a.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

func (a *Adapter) withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrConflict
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	default:
		return err
	}
}

var (
	_ repository.TransactionManager = (*Adapter)(nil)
	_ repository.Pinger             = (*Adapter)(nil)
)
