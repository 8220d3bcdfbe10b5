// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedcache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/paperscout/pkg/types"
)

// Store persists vectors across processes. Implementations must be safe
// for concurrent use.
type Store interface {
	// Load returns the vector for key; ok is false when absent.
	Load(ctx context.Context, key Key) (vec []float64, ok bool, err error)
	Save(ctx context.Context, key Key, vec []float64) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// OpenStore opens the backend selected by cfg. It returns a nil Store
// for the "none" backend.
func OpenStore(ctx context.Context, cfg types.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case types.CacheNone, "":
		return nil, nil
	case types.CacheSQLite:
		return OpenSQLite(cfg.Path)
	case types.CacheRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
