package payments

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLedger(t *testing.T) (*RedisLedger, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLedger(client), mr
}

func TestRedisLedger_ClaimOnce(t *testing.T) {
	ledger, mr := setupTestLedger(t)
	ctx := context.Background()

	first, err := ledger.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := ledger.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, again, "redelivered event must not be claimed twice")

	assert.True(t, mr.Exists(ledgerKey("evt_1")))
	assert.Greater(t, mr.TTL(ledgerKey("evt_1")).Hours(), 71.0)
}

func TestRedisLedger_Release(t *testing.T) {
	ledger, _ := setupTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Claim(ctx, "evt_2")
	require.NoError(t, err)
	require.NoError(t, ledger.Release(ctx, "evt_2"))

	ok, err := ledger.Claim(ctx, "evt_2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLedger_Expiry(t *testing.T) {
	ledger, mr := setupTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Claim(ctx, "evt_3")
	require.NoError(t, err)

	mr.FastForward(ledger.ttl)

	ok, err := ledger.Claim(ctx, "evt_3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLedger_ConnectionError(t *testing.T) {
	ledger, mr := setupTestLedger(t)
	mr.Close()

	_, err := ledger.Claim(context.Background(), "evt_4")
	assert.Error(t, err)
}

func TestMemoryLedger(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	ok, _ := ledger.Claim(ctx, "evt_1")
	assert.True(t, ok)
	ok, _ = ledger.Claim(ctx, "evt_1")
	assert.False(t, ok)

	require.NoError(t, ledger.Release(ctx, "evt_1"))
	ok, _ = ledger.Claim(ctx, "evt_1")
	assert.True(t, ok)
}
