// Package cache holds short-lived copies of dashboard reads so repeated page
// loads do not hit the result store.
package cache

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

const keyPrefix = "vista360:"

// Cache stores opaque values by key. Get reports a miss with ok=false and a
// nil error.
type Cache interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte) error
	Close() error
}

// Config selects and sizes the cache backend.
type Config struct {
	TTL      time.Duration
	Size     int
	RedisURL string
}

// New returns a Redis cache when RedisURL is set and an in-process LRU
// otherwise. A zero TTL disables caching.
func New(ctx context.Context, cfg Config) (Cache, error) {
	if cfg.TTL <= 0 {
		return Nop{}, nil
	}
	if cfg.RedisURL != "" {
		c, err := NewRedis(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, eris.Wrap(err, "cache: redis")
		}
		return c, nil
	}
	return NewMemory(cfg.Size, cfg.TTL), nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error         { return nil }
func (Nop) Close() error                                      { return nil }
