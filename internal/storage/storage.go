package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/treefix50/showtracker/internal/server"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

var (
	ErrUnknownDriver = errors.New("storage: unknown driver")
	ErrCorrupt       = errors.New("storage: database failed integrity check")
	errNoConnection  = errors.New("storage: missing database connection")
)

type Config struct {
	Driver string
	SQLite SQLiteOptions
	Redis  RedisOptions
	// CacheSize enables an LRU read cache in front of the store when > 0.
	CacheSize int
	CacheTTL  time.Duration
}

// Open builds the store named by cfg.Driver, wrapped in a read cache when
// one is configured.
func Open(cfg Config) (server.ShowStore, error) {
	var (
		store server.ShowStore
		err   error
	)
	switch cfg.Driver {
	case "", DriverMemory:
		store = NewMemoryStore()
	case DriverSQLite:
		store, err = OpenSQLite(cfg.SQLite)
	case DriverRedis:
		store, err = OpenRedis(cfg.Redis)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		store = NewCachedStore(store, cfg.CacheSize, cfg.CacheTTL)
	}
	return store, nil
}
