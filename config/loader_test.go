package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-stockwatch/types"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultsApplyToMissingSections(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
name: stockwatch
version: 1.0.0
provider:
  api_key: demo
`)

	manager, err := NewConfigurationManager(context.Background(), path)
	require.NoError(t, err)

	config := manager.GetConfig()
	assert.Equal(t, "memory", config.Storage.Type)
	assert.Equal(t, time.Hour, config.Cache.DefaultTTL)
	assert.Equal(t, 5*time.Minute, config.Cache.TTL.Quote)
	assert.Equal(t, DefaultProviderURL, config.Provider.BaseURL)
	assert.Equal(t, "demo", config.Provider.APIKey)
	assert.True(t, config.Provider.CircuitBreaker.Enabled)
	assert.Equal(t, "UTC", config.Cron.Timezone)
}

func TestOverridesAndDurations(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
name: stockwatch
version: 1.0.0
storage:
  type: sqlite
  path: ./data/stockwatch.db
cache:
  default_ttl: 30m
  ttl:
    quote: 1m
  sweep:
    enabled: true
    schedule: "0 * * * * *"
provider:
  api_key: demo
  timeout: 3s
  retries: 4
`)

	manager, err := NewConfigurationManager(context.Background(), path)
	require.NoError(t, err)

	config := manager.GetConfig()
	assert.Equal(t, "sqlite", config.Storage.Type)
	assert.Equal(t, 30*time.Minute, config.Cache.DefaultTTL)
	assert.Equal(t, time.Minute, config.Cache.TTL.Quote)
	assert.Equal(t, time.Hour, config.Cache.TTL.Overview)
	assert.True(t, config.Cache.Sweep.Enabled)
	assert.Equal(t, 3*time.Second, config.Provider.Timeout)
	assert.Equal(t, 4, config.Provider.Retries)
}

func TestEnvironmentExpansionAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STOCKWATCH_TEST_KEY=from-dotenv\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("STOCKWATCH_TEST_KEY") })
	t.Setenv("STOCKWATCH_TEST_NAME", "watcher")

	path := writeConfig(t, dir, `
name: ${STOCKWATCH_TEST_NAME}
version: 1.0.0
provider:
  api_key: ${STOCKWATCH_TEST_KEY}
`)

	manager, err := NewConfigurationManager(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "watcher", manager.GetConfig().Name)
	assert.Equal(t, "from-dotenv", manager.GetConfig().Provider.APIKey)
}

func TestValidationFailures(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	cases := map[string]string{
		"sqlite without path": "storage:\n  type: sqlite\n",
		"clover without path": "storage:\n  type: clover\n",
		"bad provider url":    "provider:\n  base_url: not a url\n",
		"bad log level":       "logger:\n  level: loud\n",
		"too many retries":    "provider:\n  retries: 50\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loader.Parse([]byte(content))
			assert.ErrorIs(t, err, types.ErrConfigValidateFailed)
		})
	}
}

func TestParseFailure(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	_, err = loader.Parse([]byte("cache: [unterminated"))
	assert.ErrorIs(t, err, types.ErrConfigParseFailed)
}

func TestMissingFile(t *testing.T) {
	_, err := NewConfigurationManager(context.Background(), filepath.Join(t.TempDir(), "absent.yml"))
	assert.ErrorIs(t, err, types.ErrConfigInvalidPath)

	_, err = NewConfigurationManager(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrConfigNotFound)
}

func TestFailedReloadKeepsPreviousConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "name: stockwatch\nversion: 1.0.0\n")

	manager, err := NewConfigurationManager(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("provider:\n  retries: 50\n"), 0o644))
	assert.ErrorIs(t, manager.Load(), types.ErrConfigValidateFailed)
	assert.Equal(t, "stockwatch", manager.GetConfig().Name)

	require.NoError(t, os.WriteFile(path, []byte("name: renamed\nversion: 1.0.1\n"), 0o644))
	require.NoError(t, manager.Load())
	assert.Equal(t, "renamed", manager.GetConfig().Name)
}

func TestLifecycle(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "name: stockwatch\nversion: 1.0.0\n")

	manager, err := NewConfigurationManager(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, manager.Start())
	assert.True(t, manager.IsRunning())
	assert.ErrorIs(t, manager.Start(), types.ErrServerAlreadyRunning)

	require.NoError(t, manager.Stop())
	assert.False(t, manager.IsRunning())
	assert.NotNil(t, manager.GetConfig())
}
