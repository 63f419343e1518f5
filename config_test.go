package construct

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_WritesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "configuration.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Memory, again.Memory)
	assert.Equal(t, time.Minute, again.Security.RateLimit.Period)
}

func TestLoadConfig_File(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "configuration.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
memory:
  max_sessions: -4
  max_session_duration: 120
  sliding_refresh: true
directory:
  type: redis
  redis:
    addr: "localhost:6379"
security:
  rate_limit:
    period: 30s
    limit: 5
  trusted_proxies: ["10.0.0.0/8"]
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 0, cfg.Memory.MaxSessions)
	assert.Equal(t, 2*time.Minute, cfg.Memory.Duration())
	assert.True(t, cfg.Memory.SlidingRefresh)
	assert.Equal(t, "redis", cfg.Directory.Type)
	assert.Equal(t, 30*time.Second, cfg.Security.RateLimit.Period)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Security.TrustedProxies)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "configuration.yaml")

	t.Setenv(EnvMaxSessions, "7")
	t.Setenv(EnvMaxSessionDuration, "-10")
	t.Setenv(EnvAddr, ":7000")
	t.Setenv(EnvRedisAddr, "redis:6379")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Memory.MaxSessions)
	assert.Zero(t, cfg.Memory.MaxSessionDuration)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "redis:6379", cfg.Directory.Redis.Addr)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CONSTRUCT_LOG_LEVEL=debug\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(EnvLogLevel) })

	cfg, err := LoadConfig(filepath.Join(dir, "configuration.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	chdir(t, t.TempDir())

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "configuration.yaml")
		require.NoError(t, os.WriteFile(path, []byte("memory: ["), 0o644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("bad env", func(t *testing.T) {
		t.Setenv(EnvMaxSessions, "many")

		_, err := LoadConfig(filepath.Join(t.TempDir(), "configuration.yaml"))
		assert.Error(t, err)
	})
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
