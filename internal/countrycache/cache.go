// Package countrycache caches the public country listings in Redis.
// Entries share a key prefix so any template or whitelist mutation can
// drop the whole family at once.
package countrycache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rateshoplabs/rateshop/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyPrefix = "shipping:countries:"

type Cache struct {
	client *redis.Client
	log    *zap.Logger
	ttl    time.Duration
}

type Params struct {
	fx.In

	Client *redis.Client `optional:"true"`
	Log    *zap.Logger
	Config config.Config
}

func New(p Params) *Cache {
	if p.Client == nil {
		return nil
	}
	ttl := time.Duration(p.Config.Redis.CountryCacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{
		client: p.Client,
		log:    p.Log.Named("countrycache"),
		ttl:    ttl,
	}
}

var Module = fx.Module("countrycache",
	fx.Provide(New),
)

// Get unmarshals the cached payload for key into out. The second return
// is false on a miss; cache errors degrade to a miss.
func (c *Cache) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err()
}

// Invalidate scans and deletes every cached country listing.
func (c *Cache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	c.log.Debug("country cache invalidated", zap.Int("keys", len(keys)))
	return nil
}
