package mgo

import (
	"context"
	"time"

	"YChat/logger"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	MaxRetry    int
}

type Manager struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials Mongo with bounded exponential backoff. The realtime core
// only reads/writes through the store interfaces, so a failed connect is a
// startup error, not something handlers must cope with.
func Connect(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 3
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 20
	}

	opts := options.Client().ApplyURI(cfg.URI).SetMaxPoolSize(cfg.MaxPoolSize)

	backoff := 200 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetry; attempt++ {
		cli, err := mongo.Connect(ctx, opts)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err = cli.Ping(pingCtx, readpref.Primary())
			cancel()
			if err == nil {
				logger.Infof("mongo connected uri=%s db=%s", cfg.URI, cfg.Database)
				return &Manager{client: cli, db: cli.Database(cfg.Database)}, nil
			}
			_ = cli.Disconnect(ctx)
		}
		lastErr = err
		logger.Warnf("mongo connect attempt %d failed: %v", attempt+1, err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
	return nil, errors.WithMessage(lastErr, "mongo connect exhausted retries")
}

func (m *Manager) DB() *mongo.Database { return m.db }

func (m *Manager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
