package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutGet(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "user_at_example_dot_com", []byte(`{"email":"user@example.com"}`)))

	data, err := store.Get(ctx, "user_at_example_dot_com")
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"user@example.com"}`, string(data))
}

func TestLocalStorageGetMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoragePutOverwrites(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "key", []byte("first")))
	require.NoError(t, store.Put(ctx, "key", []byte("second")))

	data, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalStorageDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "key", []byte("data")))
	require.NoError(t, store.Delete(ctx, "key"))

	_, err = store.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete(ctx, "gone"))

	_, err = os.Stat(filepath.Join(dir, "key.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestNewStorageSelectsBackend(t *testing.T) {
	store, err := NewStorage(StorageConfig{Type: StorageTypeLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)

	_, err = NewStorage(StorageConfig{Type: StorageTypeS3})
	assert.Error(t, err, "s3 requires a bucket")

	_, err = NewStorage(StorageConfig{Type: StorageType("tape")})
	assert.Error(t, err)
}
