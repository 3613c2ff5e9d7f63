package cartstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPersister keeps snapshots in Redis with a jittered TTL so abandoned
// carts of one traffic burst do not expire together.
type RedisPersister struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisPersister(client *redis.Client) *RedisPersister {
	return &RedisPersister{
		client:  client,
		baseTTL: 30 * 24 * time.Hour,
	}
}

func (r *RedisPersister) Load(ctx context.Context, sessionID string) ([]byte, error) {
	data, err := r.client.Get(ctx, snapshotKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisPersister) Save(ctx context.Context, sessionID string, data []byte) error {
	jitter := time.Duration(rand.Intn(24)) * time.Hour
	if err := r.client.Set(ctx, snapshotKey(sessionID), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisPersister) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, snapshotKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func snapshotKey(sessionID string) string {
	return fmt.Sprintf("storefront:cart:%s", sessionID)
}

// MemoryPersister keeps snapshots in process memory.
type MemoryPersister struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: make(map[string][]byte)}
}

func (m *MemoryPersister) Load(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[sessionID]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryPersister) Save(_ context.Context, sessionID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryPersister) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

var (
	_ Persister = (*RedisPersister)(nil)
	_ Persister = (*MemoryPersister)(nil)
)
