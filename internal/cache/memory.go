package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval — период очистки истёкших записей in-process кэша.
const DefaultCleanupInterval = 10 * time.Minute

// Memory — in-process кэш на go-cache; годится для одного экземпляра сервиса.
type Memory struct {
	cache *gocache.Cache
}

// NewMemory создаёт in-process кэш без истечения по умолчанию.
func NewMemory(cleanupInterval time.Duration) *Memory {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	return &Memory{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	v, found := m.cache.Get(key)
	if !found {
		return "", false, nil
	}

	s, ok := v.(string)
	return s, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.cache.Set(key, value, ttl)

	return nil
}

func (m *Memory) Close() error {
	m.cache.Flush()
	return nil
}

var _ AnnouncementCache = (*Memory)(nil)
