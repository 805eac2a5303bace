package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func backends(t *testing.T) map[string]Persistence {
	t.Helper()

	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	gormStore, err := NewGormStore(db)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	key, err := DeriveKey([]byte("test-master-secret"), "storage")
	require.NoError(t, err)
	encrypted, err := NewEncryptedStore(NewMemoryStore(), key)
	require.NoError(t, err)

	return map[string]Persistence{
		"memory":    NewMemoryStore(),
		"file":      fileStore,
		"gorm":      gormStore,
		"redis":     NewRedisStore(client, "test:", 0),
		"encrypted": encrypted,
	}
}

func TestBackendsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "session")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, "session", []byte(`{"a":1}`)))
			got, err := store.Get(ctx, "session")
			require.NoError(t, err)
			assert.Equal(t, `{"a":1}`, string(got))

			require.NoError(t, store.Set(ctx, "session", []byte(`{"a":2}`)))
			got, err = store.Get(ctx, "session")
			require.NoError(t, err)
			assert.Equal(t, `{"a":2}`, string(got))

			require.NoError(t, store.Delete(ctx, "session"))
			_, err = store.Get(ctx, "session")
			assert.ErrorIs(t, err, ErrNotFound)

			// deleting twice is fine
			assert.NoError(t, store.Delete(ctx, "session"))
		})
	}
}

func TestBackendsKeepKeysApart(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, "progress:alice", []byte("A")))
			require.NoError(t, store.Set(ctx, "progress:bob", []byte("B")))

			a, err := store.Get(ctx, "progress:alice")
			require.NoError(t, err)
			b, err := store.Get(ctx, "progress:bob")
			require.NoError(t, err)
			assert.Equal(t, "A", string(a))
			assert.Equal(t, "B", string(b))
		})
	}
}

func TestFileStorePermissions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), "session", []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	info, err := os.Stat(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEncryptedStoreSealsAtRest(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	key, err := DeriveKey([]byte("secret"), "storage")
	require.NoError(t, err)
	store, err := NewEncryptedStore(inner, key)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "session", []byte("plain-token")))

	raw, err := inner.Get(ctx, "session")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plain-token")

	// a sealed value moved to another key must not open
	require.NoError(t, inner.Set(ctx, "other", raw))
	_, err = store.Get(ctx, "other")
	assert.Error(t, err)

	// nor under a different key
	otherKey, err := DeriveKey([]byte("different"), "storage")
	require.NoError(t, err)
	wrong, err := NewEncryptedStore(inner, otherKey)
	require.NoError(t, err)
	_, err = wrong.Get(ctx, "session")
	assert.Error(t, err)
}

func TestEncryptedStoreRejectsShortBlob(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	require.NoError(t, inner.Set(ctx, "session", []byte("abc")))
	key, _ := DeriveKey([]byte("secret"), "storage")
	store, err := NewEncryptedStore(inner, key)
	require.NoError(t, err)

	_, err = store.Get(ctx, "session")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestRedisStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStore(client, "app:", time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "session", []byte("v")))
	assert.True(t, mr.Exists("app:session"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeriveKeyRejectsEmptySecret(t *testing.T) {
	_, err := DeriveKey(nil, "storage")
	assert.Error(t, err)
}
