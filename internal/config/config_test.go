package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"timalaus_progression/internal/progression"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadFrom_DefaultsAndEnv(t *testing.T) {
	t.Setenv("APP_AUTH_JWTSECRET", "from-env")
	t.Setenv("APP_SERVER_PORT", "9999")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "0.0.0.0:9999", cfg.Addr())
	assert.Equal(t, 5*time.Minute, cfg.Catalog.TTL)
	assert.Equal(t, 4, cfg.Worker.Count)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, progression.DefaultConfig(), cfg.Progression)
}

func TestLoadFrom_FileOverrides(t *testing.T) {
	dir := writeConfig(t, `
logLevel: debug
auth:
  jwtSecret: file-secret
redis:
  enabled: true
  addr: redis:6379
catalog:
  ttl: 30s
progression:
  maxXP: 600
  tierCutoffs: [3, 6, 9]
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Catalog.TTL)
	assert.Equal(t, 600, cfg.Progression.MaxXP)
	assert.Equal(t, 20, cfg.Progression.MinXP, "unset progression keys keep their defaults")
	assert.Equal(t, []int{3, 6, 9}, cfg.Progression.TierCutoffs)
	assert.Len(t, cfg.Progression.Ranks, 17)
}

func TestLoadFrom_Invalid(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		_, err := LoadFrom(t.TempDir())
		assert.ErrorIs(t, err, ErrMissingJWTSecret)
	})

	t.Run("invalid progression", func(t *testing.T) {
		dir := writeConfig(t, `
auth:
  jwtSecret: s
progression:
  tierCutoffs: [8, 4, 12]
`)
		_, err := LoadFrom(dir)
		assert.ErrorIs(t, err, progression.ErrInvalidTiers)
	})
}
