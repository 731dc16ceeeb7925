package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// 1. Missing blob
	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// 2. Put/Get
	require.NoError(t, store.Put(ctx, "state.bin", []byte("payload")))
	data, err := store.Get(ctx, "state.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	assert.Equal(t, 1, store.Len())

	// 3. Returned slice is a copy
	data[0] = 'X'
	again, err := store.Get(ctx, "state.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), again)

	// 4. Overwrite
	require.NoError(t, store.Put(ctx, "state.bin", []byte("v2")))
	data, err = store.Get(ctx, "state.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	// 5. Delete, idempotent
	require.NoError(t, store.Delete(ctx, "state.bin"))
	require.NoError(t, store.Delete(ctx, "state.bin"))
	_, err = store.Get(ctx, "state.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "state.bin", []byte("payload")))
	data, err := store.Get(ctx, "state.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, store.Put(ctx, "state.bin", []byte("v2")))
	data, err = store.Get(ctx, "state.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	require.NoError(t, store.Delete(ctx, "state.bin"))
	require.NoError(t, store.Delete(ctx, "state.bin"))
	_, err = store.Get(ctx, "state.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}
