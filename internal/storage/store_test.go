package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/xinling/backend/internal/config"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, KeyMoodLogs)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store must report missing key")

	require.NoError(t, store.Set(ctx, KeyMoodLogs, `[{"id":"a"}]`))
	require.NoError(t, store.Set(ctx, KeyMoodLogs, `[{"id":"b"}]`))

	val, ok, err := store.Get(ctx, KeyMoodLogs)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"b"}]`, val, "last write wins")

	require.NoError(t, store.Set(ctx, KeyDisclaimerSeen, ""))
	val, ok, err = store.Get(ctx, KeyDisclaimerSeen)
	require.NoError(t, err)
	assert.True(t, ok, "empty value is still present")
	assert.Empty(t, val)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)

	store, err := NewRedisStore(context.Background(), srv.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

func TestRedisStoreUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisStore(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	store, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	exerciseStore(t, store)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	val, ok, err := reopened.Get(context.Background(), KeyMoodLogs)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"b"}]`, val, "value survives reopen")
}

func TestNamespaceIsolatesKeys(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	alice := WithNamespace(base, "alice")
	bob := WithNamespace(base, "bob")

	require.NoError(t, alice.Set(ctx, KeyDisclaimerSeen, "true"))

	_, ok, err := bob.Get(ctx, KeyDisclaimerSeen)
	require.NoError(t, err)
	assert.False(t, ok)

	val, ok, err := base.Get(ctx, "alice:"+KeyDisclaimerSeen)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", val)
}

func TestOpenSelectsDriver(t *testing.T) {
	store, err := Open(context.Background(), config.StorageConfig{Driver: config.StorageMemory, Namespace: "p1"}, nil)
	require.NoError(t, err)
	_, isNamespaced := store.(*namespaced)
	assert.True(t, isNamespaced)

	_, err = Open(context.Background(), config.StorageConfig{Driver: "etcd"}, nil)
	assert.Error(t, err)
}
