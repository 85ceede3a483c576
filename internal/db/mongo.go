package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/xxxsen/anonmsg/internal/config"
)

type InitHook func(ctx context.Context, database *mongo.Database) error

// Mongo is the process wide document store handle. It connects on first use
// and is shared by every request afterwards.
type Mongo struct {
	cfg config.MongoConfig

	mu        sync.Mutex
	connected bool
	client    *mongo.Client
	database  *mongo.Database
	hooks     []InitHook
}

func NewMongo(cfg config.MongoConfig) *Mongo {
	return &Mongo{cfg: cfg}
}

// OnConnect registers a hook run once after the connection is established.
func (m *Mongo) OnConnect(hook InitHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// EnsureConnected connects if needed and returns the database. Calls made
// while already connected are no-ops. A failed attempt leaves the handle
// disconnected so the next call retries.
func (m *Mongo) EnsureConnected(ctx context.Context) (*mongo.Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return m.database, nil
	}
	logger := logutil.GetLogger(ctx).With(zap.String("database", m.cfg.Database))
	logger.Info("connecting to mongo")

	timeout := time.Duration(m.cfg.ConnectTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client, err := mongo.Connect(options.Client().ApplyURI(m.cfg.URI).SetConnectTimeout(timeout))
	if err != nil {
		logger.Error("mongo connect failed", zap.Error(err))
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Error("mongo ping failed", zap.Error(err))
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	database := client.Database(m.cfg.Database)
	for _, hook := range m.hooks {
		if err := hook(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo init: %w", err)
		}
	}
	m.client = client
	m.database = database
	m.connected = true
	logger.Info("connected to mongo")
	return database, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil
	}
	m.connected = false
	return m.client.Disconnect(ctx)
}
