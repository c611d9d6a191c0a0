package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a small redis-backed JSON cache used for read-heavy single-user
// lookups. A nil *Cache is a valid no-op cache, so callers never branch on
// whether redis is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
}

func New(cfg Config) *Cache {
	if cfg.Addr == "" {
		return nil
	}

	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Cache{client: client, ttl: cfg.TTL}
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	if c == nil {
		return ErrMiss
	}

	raw, err := c.client.Get(ctx, key).Bytes()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}

	return json.Unmarshal(raw, dest)
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}

	raw, err := json.Marshal(value)

	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}
