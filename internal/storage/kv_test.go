package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runKVContract exercises the behaviour every backend has to share.
func runKVContract(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := kv.Get(ctx, "contract:missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "contract:a", []byte(`[{"id":"1"}]`)))
		got, err := kv.Get(ctx, "contract:a")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"1"}]`, string(got))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "contract:b", []byte("1")))
		require.NoError(t, kv.Set(ctx, "contract:b", []byte("2")))
		got, err := kv.Get(ctx, "contract:b")
		require.NoError(t, err)
		assert.Equal(t, "2", string(got))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "contract:c", []byte("x")))
		require.NoError(t, kv.Delete(ctx, "contract:c"))
		require.NoError(t, kv.Delete(ctx, "contract:c"))
		_, err := kv.Get(ctx, "contract:c")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryKV_Contract(t *testing.T) {
	runKVContract(t, NewMemoryKV())
}

func TestMemoryKV_CopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestPrefixed(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	scoped := Prefixed(kv, SessionPrefix("sid-1"))

	require.NoError(t, scoped.Set(ctx, "cartItems", []byte("[]")))

	got, err := kv.Get(ctx, "session:sid-1:cartItems")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	other := Prefixed(kv, SessionPrefix("sid-2"))
	_, err = other.Get(ctx, "cartItems")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, scoped.Delete(ctx, "cartItems"))
	assert.Equal(t, 0, kv.Len())
}
