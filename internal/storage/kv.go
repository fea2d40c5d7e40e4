package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// KV is the minimal durable key-value contract the cart persists through.
// Delete must be idempotent.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Backend is a KV that owns a connection.
type Backend interface {
	KV
	Close() error
}

type prefixed struct {
	kv     KV
	prefix string
}

// Prefixed scopes every key of kv under prefix.
func Prefixed(kv KV, prefix string) KV {
	return prefixed{kv: kv, prefix: prefix}
}

func (p prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.kv.Get(ctx, p.prefix+key)
}

func (p prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.kv.Set(ctx, p.prefix+key, value)
}

func (p prefixed) Delete(ctx context.Context, key string) error {
	return p.kv.Delete(ctx, p.prefix+key)
}

// SessionPrefix is the namespace of one browser session's keys.
func SessionPrefix(sessionID string) string {
	return "session:" + sessionID + ":"
}
