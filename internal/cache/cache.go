// cache содержит кэш производных строковых значений (объявление о почти
// распроданных конференциях). Запись может отсутствовать или истечь.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// AnnouncementCache — минимальный контракт кэша объявлений.
type AnnouncementCache interface {
	// Get возвращает значение и признак его наличия в кэше.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set сохраняет значение; ttl <= 0 — без истечения.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Close освобождает ресурсы кэша.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "conference:".
func NewRedisCache(redisURL, prefix string) (AnnouncementCache, error) {
	if prefix == "" {
		prefix = "conference:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(k string) string { return c.prefix + k }

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, err
	}

	return v, true, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	return c.rdb.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
