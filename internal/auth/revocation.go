package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations remembers revoked capability ids until they would have expired
// anyway.
type Revocations interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// MemoryRevocations is a process-local revocation list.
type MemoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocations creates an empty list.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevocations) Revoke(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, k)
		}
	}
	if until.After(now) {
		m.entries[id] = until
	}
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[id]
	return ok && exp.After(m.now()), nil
}

// RedisRevocations shares the revocation list between API replicas.
type RedisRevocations struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRevocations stores entries under prefix.
func NewRedisRevocations(client *redis.Client, prefix string) *RedisRevocations {
	if prefix == "" {
		prefix = "attendance:revoked:"
	}
	return &RedisRevocations{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisRevocations) Revoke(ctx context.Context, id string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+id, 1, ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
