package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger remembers which webhook events were already handled so processor
// redeliveries do not create a second payment or order.
type Ledger interface {
	// Claim records eventID and reports whether this caller is the first.
	Claim(ctx context.Context, eventID string) (bool, error)
	// Release forgets eventID so a redelivery can be handled again.
	Release(ctx context.Context, eventID string) error
}

// RedisLedger stores claims as SETNX keys that expire after the processor's
// redelivery window.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLedger keeps claims for three days, longer than Stripe retries.
func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client, ttl: 72 * time.Hour}
}

func (l *RedisLedger) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, ledgerKey(eventID), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

func (l *RedisLedger) Release(ctx context.Context, eventID string) error {
	if err := l.client.Del(ctx, ledgerKey(eventID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func ledgerKey(eventID string) string {
	return fmt.Sprintf("webhook:event:%s", eventID)
}

// MemoryLedger is a process-local Ledger for single instance deployments.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]struct{})}
}

func (l *MemoryLedger) Claim(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[eventID]; ok {
		return false, nil
	}
	l.seen[eventID] = struct{}{}
	return true, nil
}

func (l *MemoryLedger) Release(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, eventID)
	return nil
}

var (
	_ Ledger = (*RedisLedger)(nil)
	_ Ledger = (*MemoryLedger)(nil)
)
