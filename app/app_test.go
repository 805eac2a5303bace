package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"challenge-reward-system/config"
	"challenge-reward-system/models"
	"challenge-reward-system/persistence"
	"challenge-reward-system/stores"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func storageConfig(sc config.StorageConfig) *config.Config {
	if sc.MasterKey == "" {
		sc.MasterKey = "correct horse battery staple"
	}
	return &config.Config{Storage: sc}
}

func roundTrip(t *testing.T, p persistence.Persistence) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, p.Set(ctx, "k", []byte("v")))
	got, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestNewPersistenceMemory(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	p, err := NewPersistence(lc, storageConfig(config.StorageConfig{Backend: "memory"}), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &persistence.MemoryStore{}, p)
	roundTrip(t, p)
}

func TestNewPersistenceFileIsEncrypted(t *testing.T) {
	dir := t.TempDir()
	lc := fxtest.NewLifecycle(t)
	p, err := NewPersistence(lc, storageConfig(config.StorageConfig{Backend: "file", Dir: dir}), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &persistence.EncryptedStore{}, p)
	roundTrip(t, p)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.NotEqual(t, []byte("v"), raw)
}

func TestNewPersistenceGorm(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	p, err := NewPersistence(lc, storageConfig(config.StorageConfig{
		Backend: "gorm", Driver: "sqlite", DatabaseURL: "file:apptest?mode=memory&cache=shared",
	}), zap.NewNop())
	require.NoError(t, err)
	lc.RequireStart()
	roundTrip(t, p)
	lc.RequireStop()
}

func TestNewPersistenceRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := fxtest.NewLifecycle(t)
	p, err := NewPersistence(lc, storageConfig(config.StorageConfig{
		Backend: "redis", RedisAddr: mr.Addr(), RedisPrefix: "test:",
	}), zap.NewNop())
	require.NoError(t, err)
	lc.RequireStart()
	roundTrip(t, p)
	assert.True(t, mr.Exists("test:k"))
	lc.RequireStop()
}

func TestNewPersistenceRejects(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	_, err := NewPersistence(lc, storageConfig(config.StorageConfig{Backend: "tape"}), zap.NewNop())
	assert.Error(t, err)

	cfg := &config.Config{Storage: config.StorageConfig{Backend: "file", Dir: t.TempDir()}}
	_, err = NewPersistence(lc, cfg, zap.NewNop())
	assert.Error(t, err, "file storage without a master key")
}

func TestNewClientMockModeRestoresSession(t *testing.T) {
	const wallet = "0x00112233445566778899aabbccddeeff00112233"
	cfg := &config.Config{Client: config.ClientConfig{
		Mode:              config.ModeMock,
		MockSuccessRate:   1,
		MockWalletAddress: wallet,
	}}
	persist := persistence.NewMemoryStore()

	first, err := NewClient(fxtest.NewLifecycle(t), cfg, zap.NewNop(), persist)
	require.NoError(t, err)
	assert.Nil(t, first.HTTP)
	assert.Nil(t, first.Stats)
	assert.Nil(t, first.Uploader)

	ctx := context.Background()
	identity, err := first.Session.ConnectWallet(ctx)
	require.NoError(t, err)
	stores.Sync(ctx, stores.AuthSnapshot{State: stores.Authenticated, Identity: identity}, first.Progress)
	_, err = first.Progress.StartChallenge(ctx, "1")
	require.NoError(t, err)

	lc := fxtest.NewLifecycle(t)
	second, err := NewClient(lc, cfg, zap.NewNop(), persist)
	require.NoError(t, err)
	lc.RequireStart()

	assert.Equal(t, stores.Authenticated, second.Session.State())
	assert.Equal(t, wallet, second.Session.Identity().Address)
	rec, ok := second.Progress.GetChallengeProgress("1")
	require.True(t, ok)
	assert.Equal(t, models.StatusInProgress, rec.Status)
	lc.RequireStop()
}
