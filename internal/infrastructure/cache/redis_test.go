package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/cartsync/internal/domain/cart"
)

func newRedisTestStore(t *testing.T, ttl time.Duration) (*RedisSnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisSnapshotStoreWithClient(client, "cart:snapshot:", ttl, nil)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisSnapshotStoreRoundTrip(t *testing.T) {
	store, _ := newRedisTestStore(t, 0)
	ctx := context.Background()

	lines := []cart.Line{
		{ProductID: 10, ServerLineID: 100, Name: "Classic Tee", UnitPrice: decimal.NewFromInt(50000), Quantity: 2, Size: "M"},
	}
	require.NoError(t, store.Save(ctx, "acct-1", lines))

	got, err := store.Load(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].ProductID)
	assert.Equal(t, int64(2), got[0].Quantity)
}

func TestRedisSnapshotStoreMissingKeyIsNotAnError(t *testing.T) {
	store, _ := newRedisTestStore(t, 0)

	got, err := store.Load(context.Background(), "never-saved")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSnapshotStoreDelete(t *testing.T) {
	store, _ := newRedisTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "acct-1", []cart.Line{{ProductID: 10, Quantity: 1}}))
	require.NoError(t, store.Delete(ctx, "acct-1"))

	got, err := store.Load(ctx, "acct-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisSnapshotStoreHonorsTTL(t *testing.T) {
	store, mr := newRedisTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "acct-1", []cart.Line{{ProductID: 10, Quantity: 1}}))

	mr.FastForward(2 * time.Minute)

	got, err := store.Load(ctx, "acct-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisSnapshotStoreDropsCorruptPayloadRows(t *testing.T) {
	store, mr := newRedisTestStore(t, 0)

	// Simulate a partially corrupted cache written by another client
	require.NoError(t, mr.Set("cart:snapshot:acct-1",
		`[{"product_id": 10, "quantity": 2, "unit_price": 50000}, {"product_id": null, "quantity": 1}]`))

	got, err := store.Load(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].ProductID)
}
