// Package mongodb wraps the MongoDB driver with connection management,
// per-operation timeouts and the collection helpers used by the document
// repositories.
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

	"github.com/nimburion/taskboard/pkg/observability/logger"
)

// ErrNoDocuments is returned by FindOne when nothing matches.
var ErrNoDocuments = mongo.ErrNoDocuments

// Config holds MongoDB adapter settings.
type Config struct {
	URL              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// Index describes a single-field index to create at startup.
type Index struct {
	Collection string
	Field      string
	Unique     bool
}

// Adapter owns a MongoDB client bound to one database.
type Adapter struct {
	client   *mongo.Client
	database string
	logger   logger.Logger
	timeout  time.Duration
	mu       sync.RWMutex
	closed   bool
}

// NewAdapter connects to MongoDB and verifies the connection with a ping.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("mongodb URL is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongodb database is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("mongodb connection established", "database", cfg.Database)
	return &Adapter{
		client:   client,
		database: cfg.Database,
		logger:   log,
		timeout:  cfg.OperationTimeout,
	}, nil
}

// DatabaseName returns the configured database.
func (a *Adapter) DatabaseName() string { return a.database }

func (a *Adapter) collection(name string) *mongo.Collection {
	return a.client.Database(a.database).Collection(name)
}

// Ping checks connectivity against the primary.
func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return errors.New("mongodb adapter is closed")
	}
	return a.client.Ping(ctx, readpref.Primary())
}

// HealthCheck pings with a short timeout.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	hcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Ping(hcCtx); err != nil {
		a.logger.Error("mongodb health check failed", "error", err)
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

// Close disconnects the client. Calling it twice is a no-op.
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

// EnsureIndexes creates the given indexes. Existing indexes are left alone.
func (a *Adapter) EnsureIndexes(ctx context.Context, indexes []Index) error {
	for _, idx := range indexes {
		opCtx, cancel := a.withOperationTimeout(ctx)
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: idx.Field, Value: 1}},
			Options: options.Index().SetUnique(idx.Unique),
		}
		_, err := a.collection(idx.Collection).Indexes().CreateOne(opCtx, model)
		cancel()
		if err != nil {
			return fmt.Errorf("create index %s.%s: %w", idx.Collection, idx.Field, err)
		}
	}
	return nil
}

// Count returns the number of documents matching filter.
func (a *Adapter) Count(ctx context.Context, collection string, filter any) (int64, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	return a.collection(collection).CountDocuments(opCtx, filter)
}

// Find decodes every document matching filter into results, which must be a
// pointer to a slice.
func (a *Adapter) Find(ctx context.Context, collection string, filter any, opts *options.FindOptions, results any) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	cur, err := a.collection(collection).Find(opCtx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(opCtx, results)
}

// FindOne decodes the first document matching filter into result.
func (a *Adapter) FindOne(ctx context.Context, collection string, filter, result any) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	return a.collection(collection).FindOne(opCtx, filter).Decode(result)
}

// InsertOne stores doc.
func (a *Adapter) InsertOne(ctx context.Context, collection string, doc any) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	_, err := a.collection(collection).InsertOne(opCtx, doc)
	return err
}

// ReplaceOne overwrites the document matching filter and reports whether one matched.
func (a *Adapter) ReplaceOne(ctx context.Context, collection string, filter, doc any) (bool, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	res, err := a.collection(collection).ReplaceOne(opCtx, filter, doc)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// DeleteOne removes the document matching filter and reports whether one existed.
func (a *Adapter) DeleteOne(ctx context.Context, collection string, filter any) (bool, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	res, err := a.collection(collection).DeleteOne(opCtx, filter)
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// withOperationTimeout applies the adapter timeout unless the caller already set a deadline.
func (a *Adapter) withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}
