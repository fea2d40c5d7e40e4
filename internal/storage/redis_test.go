package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisKV instance
func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisKV, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisKV(client, ttl), mr
}

func TestRedisKV_Contract(t *testing.T) {
	kv, _ := setupTestRedis(t, time.Hour)
	runKVContract(t, kv)
}

func TestRedisKV_GetRaw(t *testing.T) {
	kv, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, mr.Set("session:s1:cartItems", `[{"id":"p1","quantity":2}]`))

	got, err := kv.Get(context.Background(), "session:s1:cartItems")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p1","quantity":2}]`, string(got))
}

func TestRedisKV_SetWithTTL(t *testing.T) {
	kv, mr := setupTestRedis(t, 24*time.Hour)

	require.NoError(t, kv.Set(context.Background(), "k", []byte("v")))

	ttl := mr.TTL("k")
	assert.True(t, ttl >= 24*time.Hour, "TTL should be at least base TTL")
	assert.True(t, ttl < 25*time.Hour, "TTL should be base + max jitter")
}

func TestRedisKV_ZeroTTLNeverExpires(t *testing.T) {
	kv, mr := setupTestRedis(t, 0)

	require.NoError(t, kv.Set(context.Background(), "k", []byte("v")))

	assert.Equal(t, time.Duration(0), mr.TTL("k"))
}

func TestRedisKV_StoreDropsCorruptedEntry(t *testing.T) {
	kv, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, mr.Set("cartItems", "not-json"))
	store := NewStore(kv, nil, nil)

	var items []item
	found, err := store.Read(context.Background(), "cartItems", &items)

	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists("cartItems"))
}

func TestRedisKV_ConnectionError(t *testing.T) {
	kv, mr := setupTestRedis(t, time.Hour)
	mr.Close()

	_, err := kv.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "redis get failed")
}
