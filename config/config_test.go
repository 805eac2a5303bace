package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, 5200, cfg.Server.Port)
	assert.Equal(t, ModeMock, cfg.Client.Mode)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, time.Minute, cfg.Server.DeadlineSweep)
	assert.InDelta(t, 0.8, cfg.Client.MockSuccessRate, 1e-9)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("CLIENT_MODE", "http")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("DATABASE_URL", "postgres://localhost/app")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("CLIENT_MOCK_DELAY", "25ms")

	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ModeHTTP, cfg.Client.Mode)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "postgres://localhost/app", cfg.Storage.DatabaseURL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.Origins())
	assert.Equal(t, 25*time.Millisecond, cfg.Client.MockDelay)
}

func TestValidateServer(t *testing.T) {
	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)
	assert.Error(t, cfg.ValidateServer())

	cfg.Server.JWTSecret = "0123456789abcdef"
	assert.NoError(t, cfg.ValidateServer())
}

func TestValidateClient(t *testing.T) {
	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)

	cfg.Storage.MasterKey = ""
	assert.Error(t, cfg.ValidateClient())

	cfg.Storage.MasterKey = "secret"
	assert.NoError(t, cfg.ValidateClient())

	cfg.Storage.Backend = "gorm"
	assert.Error(t, cfg.ValidateClient())
	cfg.Storage.DatabaseURL = "file:challenger.db"
	assert.NoError(t, cfg.ValidateClient())

	cfg.Client.Mode = "carrier-pigeon"
	assert.Error(t, cfg.ValidateClient())
}
