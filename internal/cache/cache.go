package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mindpath-ai/mindpath/config"
)

const snapshotKeyPrefix = "profile_snapshot:"

// Conn opens and pings a redis client from configuration.
func Conn(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		DialTimeout: cfg.Timeout,
		Password:    cfg.Password,
		DB:          cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// Snapshot caches the formatted profile text injected into the advisor
// prompt, keyed per user. All methods are nil-safe so the cache can be
// disabled by simply not constructing one; cache errors are logged and
// treated as misses because the store remains the source of truth.
type Snapshot struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewSnapshot(client *redis.Client, ttl time.Duration, logger *log.Logger) *Snapshot {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Snapshot{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached prompt text for a user, if present.
func (c *Snapshot) Get(ctx context.Context, userID string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, snapshotKeyPrefix+userID).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Printf("snapshot cache get: %v", err)
		}
		return "", false
	}
	return val, true
}

// Set stores the prompt text for a user.
func (c *Snapshot) Set(ctx context.Context, userID, text string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, snapshotKeyPrefix+userID, text, c.ttl).Err(); err != nil {
		c.logger.Printf("snapshot cache set: %v", err)
	}
}

// Invalidate drops the cached text after the profile changed.
func (c *Snapshot) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, snapshotKeyPrefix+userID).Err(); err != nil {
		c.logger.Printf("snapshot cache invalidate: %v", err)
	}
}
