package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.db")
	backend, err := NewBoltBackend(path)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := backend.Get(ctx, KeyUsers)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Put(ctx, KeyUsers, []byte(`[{"id":"u1"}]`)))
	require.NoError(t, backend.Close())

	reopened, err := NewBoltBackend(path)
	require.NoError(t, err)
	defer reopened.Close()

	store := NewRecordStore(reopened, 0, nil)
	users := Load[record](ctx, store, KeyUsers)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)
}

func TestBoltBackendHonoursCancelledContext(t *testing.T) {
	backend, err := NewBoltBackend(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, backend.Put(ctx, "k", []byte("[]")))
	_, _, err = backend.Get(ctx, "k")
	assert.Error(t, err)
}

func TestBoltBackendPing(t *testing.T) {
	backend, err := NewBoltBackend(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, backend.Ping(ctx), context.Canceled)
}
