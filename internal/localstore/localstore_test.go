package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "accessToken")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "accessToken", []byte("tok")))
	got, err := store.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.Equal(t, []byte("tok"), got)

	require.NoError(t, store.Del(ctx, "accessToken"))
	_, err = store.Get(ctx, "accessToken")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir, "")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "dbSchema", []byte(`{"tables":[]}`)))

	reopened, err := NewFileStore(dir, "")
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "dbSchema")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"tables":[]}`), got)
}

func TestFileStoreEncryptsAtRest(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir, "hunter2-passphrase")
	require.NoError(t, err)
	secret := []byte(`{"password":"pg-secret"}`)
	require.NoError(t, store.Set(ctx, "dbSchema", secret))

	// The bytes on disk must not contain the plaintext.
	raw, err := os.ReadFile(filepath.Join(dir, "dbSchema.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "pg-secret")

	got, err := store.Get(ctx, "dbSchema")
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	// A store opened with the wrong passphrase cannot read the value.
	wrong, err := NewFileStore(dir, "other-passphrase")
	require.NoError(t, err)
	_, err = wrong.Get(ctx, "dbSchema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt")
}

func TestFileStoreMissingKeyAndIdempotentDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "tableData")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.NoError(t, store.Del(ctx, "tableData"))

	require.NoError(t, store.Set(ctx, "tableData", []byte("{}")))
	require.NoError(t, store.Del(ctx, "tableData"))
	assert.NoError(t, store.Del(ctx, "tableData"))
}

func TestFileStoreSanitizesKeyNames(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "../escape", []byte("x")))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "___escape.json", entries[0].Name())
}
