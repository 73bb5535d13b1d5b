package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache holds recently read products.
type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	Set(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ErrCacheMiss is returned by Cache.Get when the product is not cached.
var ErrCacheMiss = errors.New("catalog: cache miss")

type redisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) Cache {
	return &redisCache{rdb: rdb, ttl: ttl}
}

func productKey(id uuid.UUID) string {
	return fmt.Sprintf("product:%s", id)
}

func (c *redisCache) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	data, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache: failed to get product %s: %w", id, err)
	}

	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("cache: corrupt entry for product %s: %w", id, err)
	}
	return &p, nil
}

func (c *redisCache) Set(ctx context.Context, p *Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productKey(p.ID), data, c.ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, id uuid.UUID) error {
	return c.rdb.Del(ctx, productKey(id)).Err()
}
