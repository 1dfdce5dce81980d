// Package storage is the durable key-value layer behind the journal and the shell.
// Values are opaque strings overwritten whole on every write; the last writer wins.
package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/xinling/backend/internal/config"
	"github.com/zhouzirui/xinling/backend/internal/logging"
)

// Fixed keys shared with the client.
const (
	KeyMoodLogs       = "xinling_moods"
	KeyDisclaimerSeen = "xinling_disclaimer_seen"
)

// Store is a durable string key-value store.
type Store interface {
	// Get reports ok=false when the key has never been written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Open builds the store selected by cfg.Driver, wrapped with cfg.Namespace when set.
func Open(ctx context.Context, cfg config.StorageConfig, logger logrus.FieldLogger) (Store, error) {
	log := logging.Component(logger, "storage")

	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case config.StorageMemory:
		store = NewMemoryStore()
	case config.StorageRedis:
		store, err = NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.StorageSQLite:
		store, err = NewSQLiteStore(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	log.WithField("driver", cfg.Driver).Info("storage ready")
	if cfg.Namespace == "" {
		return store, nil
	}
	return WithNamespace(store, cfg.Namespace), nil
}

type namespaced struct {
	Store
	prefix string
}

// WithNamespace prefixes every key with "<ns>:" so several profiles can share one backend.
func WithNamespace(store Store, ns string) Store {
	return &namespaced{Store: store, prefix: ns + ":"}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.Store.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.Store.Set(ctx, n.prefix+key, value)
}
