package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/saiset-co/sai-stockwatch/types"
	"github.com/saiset-co/sai-stockwatch/utils"
)

type staticConfig struct {
	config *types.ServiceConfig
}

func (s *staticConfig) Load() error                     { return nil }
func (s *staticConfig) GetConfig() *types.ServiceConfig { return s.config }

func fileLoggerConfig(file, level string) *staticConfig {
	return &staticConfig{config: &types.ServiceConfig{
		Name:    "stockwatch",
		Version: "1.0.0",
		Logger: &types.LoggerConfig{
			Level: level,
			Config: map[string]interface{}{
				"format": "json",
				"output": "file",
				"file":   file,
			},
		},
	}}
}

func readEntries(t *testing.T, file string) []map[string]interface{} {
	t.Helper()

	data, err := os.ReadFile(file)
	require.NoError(t, err)

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, utils.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}

	return entries
}

func TestManagerWritesServiceFields(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "stockwatch.log")

	manager, err := NewManager(context.Background(), fileLoggerConfig(file, "info"))
	require.NoError(t, err)
	require.NoError(t, manager.Start())

	manager.Debug("Cache entry written")
	manager.Info("Cache sweep finished", zap.Int("removed", 3))
	require.NoError(t, manager.Stop())

	entries := readEntries(t, file)
	require.Len(t, entries, 1)
	assert.Equal(t, "Cache sweep finished", entries[0]["msg"])
	assert.Equal(t, "stockwatch", entries[0]["service"])
	assert.Equal(t, "1.0.0", entries[0]["version"])
	assert.Equal(t, float64(3), entries[0]["removed"])
}

func TestErrorWithErrStack(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "stockwatch.log")

	manager, err := NewManager(context.Background(), fileLoggerConfig(file, "error"))
	require.NoError(t, err)

	cause := errors.New("upstream closed connection")
	manager.ErrorWithErrStack("Provider request failed", errors.Wrap(cause, "global quote"))
	require.NoError(t, manager.Start())
	require.NoError(t, manager.Stop())

	entries := readEntries(t, file)
	require.Len(t, entries, 1)
	assert.Equal(t, "upstream closed connection", entries[0]["error"])
	assert.NotEmpty(t, entries[0]["stack"])
}

func TestUnknownLoggerType(t *testing.T) {
	_, err := NewManager(context.Background(), &staticConfig{config: &types.ServiceConfig{
		Logger: &types.LoggerConfig{Type: "syslog"},
	}})
	assert.ErrorIs(t, err, types.ErrLoggerTypeUnknown)

	_, err = NewManager(context.Background(), &staticConfig{config: &types.ServiceConfig{}})
	assert.ErrorIs(t, err, types.ErrLoggerConfigInvalid)
}

func TestLifecycle(t *testing.T) {
	manager, err := NewManager(context.Background(), &staticConfig{config: &types.ServiceConfig{
		Logger: &types.LoggerConfig{Type: "zap", Config: map[string]interface{}{"output": "stderr"}},
	}})
	require.NoError(t, err)

	assert.ErrorIs(t, manager.Stop(), types.ErrServerNotRunning)
	require.NoError(t, manager.Start())
	assert.True(t, manager.IsRunning())
	assert.ErrorIs(t, manager.Start(), types.ErrServerAlreadyRunning)
	require.NoError(t, manager.Stop())
	assert.False(t, manager.IsRunning())
}

func TestLevels(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		log := NewNop()
		log.Info("Cache sweep finished")
		log.ErrorWithErrStack("Provider request failed", errors.New("timeout"))
		log.ErrorWithErrStack("Provider request failed", nil)
	})
}

func TestEnsureLogDir(t *testing.T) {
	assert.ErrorIs(t, ensureLogDir(""), types.ErrLogFileIsEmpty)
	assert.ErrorIs(t, ensureLogDir("app.log"), types.ErrLogFileWrongFormat)
	assert.NoError(t, ensureLogDir(filepath.Join(t.TempDir(), "nested", "app.log")))
}
