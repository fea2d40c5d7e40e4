package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisKV(client *redis.Client, baseTTL time.Duration) *RedisKV {
	return &RedisKV{
		client:  client,
		baseTTL: baseTTL,
	}
}

// RedisKV expires entries after baseTTL plus up to an hour of jitter so carts
// abandoned at the same moment do not expire together. A zero TTL keeps
// entries forever.
type RedisKV struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}

func (r *RedisKV) ttl() time.Duration {
	if r.baseTTL <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Intn(60)) * time.Minute
	return r.baseTTL + jitter
}
