// Package session keeps small per-visitor values (pending-moderation flag,
// captcha answers) keyed by an anonymous visitor id.
package session

import (
	"context"
	"sync"
	"time"

	pkgredis "github.com/mx-space/comments/internal/pkg/redis"
	"github.com/patrickmn/go-cache"
)

// DefaultTTL bounds how long a visitor value lives.
const DefaultTTL = 30 * time.Minute

// Store holds string values per visitor.
type Store interface {
	Set(ctx context.Context, visitorID, key, value string) error
	Get(ctx context.Context, visitorID, key string) (string, error)
	// Take returns the value and removes it; "" when absent.
	Take(ctx context.Context, visitorID, key string) (string, error)
}

func storeKey(visitorID, key string) string {
	return "mx:visitor:" + visitorID + ":" + key
}

// RedisStore keeps values in Redis, shared by every process.
type RedisStore struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedisStore(client *pkgredis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Set(ctx context.Context, visitorID, key, value string) error {
	return s.client.Set(ctx, storeKey(visitorID, key), value, s.ttl)
}

func (s *RedisStore) Get(ctx context.Context, visitorID, key string) (string, error) {
	return s.client.Get(ctx, storeKey(visitorID, key))
}

func (s *RedisStore) Take(ctx context.Context, visitorID, key string) (string, error) {
	return s.client.GetDel(ctx, storeKey(visitorID, key))
}

// MemoryStore keeps values in process memory. Used when no Redis is configured.
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: cache.New(ttl, 2*ttl)}
}

func (s *MemoryStore) Set(_ context.Context, visitorID, key, value string) error {
	s.cache.SetDefault(storeKey(visitorID, key), value)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, visitorID, key string) (string, error) {
	if v, ok := s.cache.Get(storeKey(visitorID, key)); ok {
		return v.(string), nil
	}
	return "", nil
}

func (s *MemoryStore) Take(_ context.Context, visitorID, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := storeKey(visitorID, key)
	v, ok := s.cache.Get(k)
	if !ok {
		return "", nil
	}
	s.cache.Delete(k)
	return v.(string), nil
}
