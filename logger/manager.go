package logger

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/lifecycle"
	"github.com/saiset-co/sai-stockwatch/types"
)

// Manager is the process logger. Every entry is tagged with the service name
// and version; Stop flushes it and closes the log file.
type Manager struct {
	*Zap
	file io.Closer
	life lifecycle.Machine
}

func NewManager(_ context.Context, config types.ConfigManager) (*Manager, error) {
	serviceConfig := config.GetConfig()

	loggerConfig := serviceConfig.Logger
	if loggerConfig == nil {
		return nil, types.ErrLoggerConfigInvalid
	}

	switch loggerConfig.Type {
	case "", "zap":
	default:
		return nil, types.Errorf(types.ErrLoggerTypeUnknown, "logger type: %s", loggerConfig.Type)
	}

	log, file, err := build(loggerConfig,
		zap.String("service", serviceConfig.Name),
		zap.String("version", serviceConfig.Version),
	)
	if err != nil {
		return nil, types.WrapError(err, "failed to create logger")
	}

	return &Manager{Zap: log, file: file}, nil
}

func (m *Manager) Start() error {
	return m.life.Run(types.ErrServerAlreadyRunning, nil)
}

func (m *Manager) Stop() error {
	return m.life.Halt(types.ErrServerNotRunning, func() error {
		// stdout/stderr sync returns EINVAL on some platforms
		_ = m.Sync()

		if m.file != nil {
			return m.file.Close()
		}
		return nil
	})
}

func (m *Manager) IsRunning() bool {
	return m.life.Running()
}
