package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pranaysuyash/metaextract-sub011/pkg/common"
)

// Key patterns for engine state kept in Redis. All shared mutable state
// (similarity index, threat-intel cache, behavior history, blocklists) lives
// here so multiple workers can share it.
const (
	ThreatIntelKeyPattern = "ti:ip:%s"
	BehaviorKeyPattern    = "behavior:%s"
	TorExitSetKey         = "blocklist:tor_exit"
)

// Cache wraps the shared Redis client used for all engine state.
type Cache struct {
	client *redis.Client
}

func NewCache(config common.CacheConfig) (*Cache, error) {
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	}
	if config.TLS {
		options.TLSConfig = &tls.Config{
			InsecureSkipVerify: true, // #nosec G402
		}
	}
	client := redis.NewClient(options)

	return &Cache{client: client}, nil
}

// NewCacheWithClient wires an existing client; used by tests with redismock.
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *Cache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Close() error {
	return c.client.Close()
}
