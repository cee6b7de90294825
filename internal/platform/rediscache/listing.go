package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/articleforge-backend/internal/platform/logger"
)

const defaultKeyPrefix = "articleforge:listing:"

// Lister returns the file names available to a scope (usually an article id).
type Lister interface {
	List(ctx context.Context, scope string) ([]string, error)
}

// NewClient dials addr and pings it.
func NewClient(ctx context.Context, addr string) (*goredis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// DefaultTTL keeps the cache a short burst shield. Writers that add files
// to a scope should still call Invalidate so readers see them at once.
const DefaultTTL = 5 * time.Second

// ListingCache caches listings as JSON arrays. Redis failures are logged
// and the inner lister is consulted, so the cache never turns a working
// listing into an error.
type ListingCache struct {
	log       *logger.Logger
	rdb       goredis.Cmdable
	inner     Lister
	ttl       time.Duration
	keyPrefix string
}

func NewListingCache(log *logger.Logger, rdb goredis.Cmdable, inner Lister, ttl time.Duration) *ListingCache {
	if log == nil {
		log = logger.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ListingCache{
		log:       log.With("service", "ListingCache"),
		rdb:       rdb,
		inner:     inner,
		ttl:       ttl,
		keyPrefix: defaultKeyPrefix,
	}
}

func (c *ListingCache) key(scope string) string {
	return c.keyPrefix + strings.TrimSpace(scope)
}

func (c *ListingCache) List(ctx context.Context, scope string) ([]string, error) {
	if c.inner == nil {
		return nil, fmt.Errorf("listing cache: inner lister required")
	}
	if c.rdb == nil {
		return c.inner.List(ctx, scope)
	}
	key := c.key(scope)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var names []string
		uerr := json.Unmarshal(raw, &names)
		if uerr == nil {
			return names, nil
		}
		c.log.Warn("listing cache entry unreadable", "key", key, "error", uerr)
	case errors.Is(err, goredis.Nil):
	default:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn("listing cache get failed (falling back)", "key", key, "error", err)
	}

	names, err := c.inner.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	if payload, merr := json.Marshal(names); merr == nil {
		if serr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			c.log.Warn("listing cache set failed", "key", key, "error", serr)
		}
	}
	return names, nil
}

// Invalidate drops the cached listing for scope.
func (c *ListingCache) Invalidate(ctx context.Context, scope string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, c.key(scope)).Err()
}
