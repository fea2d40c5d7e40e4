package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/fjod/autoparts-storefront/internal/session"
	"github.com/fjod/autoparts-storefront/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "storefront", cmd.Use)

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, "[.env]", envFlag.DefValue)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, path := range [][]string{{"serve"}, {"migrate"}, {"cart", "show"}} {
		t.Run(path[len(path)-1], func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	portFlag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, portFlag)
	assert.Equal(t, "p", portFlag.Shorthand)
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCartShow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "carts.db")
	t.Setenv("STORE_DRIVER", storage.DriverSQLite)
	t.Setenv("SQLITE_PATH", dbPath)

	sid := uuid.NewString()
	kv, err := storage.OpenSQLite(dbPath)
	require.NoError(t, err)
	err = storage.Prefixed(kv, storage.SessionPrefix(sid)).Set(context.Background(), session.CartKey,
		[]byte(`[{"id":"p1","name":"Brake Pad","price":450,"quantity":3}]`))
	require.NoError(t, err)
	require.NoError(t, kv.Close())

	out, err := runCommand(t, "cart", "show", "--session", sid)

	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Brake Pad"`)
	assert.Contains(t, out, `"subtotal": 1350`)
	assert.Contains(t, out, `"shippingFee": 0`)
	assert.Contains(t, out, `"count": 3`)
}

func TestCartShow_Errors(t *testing.T) {
	t.Run("malformed session id", func(t *testing.T) {
		_, err := runCommand(t, "cart", "show", "--session", "abc")
		assert.Error(t, err)
	})

	t.Run("memory store", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", storage.DriverMemory)
		_, err := runCommand(t, "cart", "show", "--session", uuid.NewString())
		assert.ErrorContains(t, err, "memory store")
	})
}
