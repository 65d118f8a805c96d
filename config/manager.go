package config

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/saiset-co/sai-stockwatch/lifecycle"
	"github.com/saiset-co/sai-stockwatch/types"
)

const loadTimeout = 30 * time.Second

// ConfigurationManager holds the last configuration that loaded and
// validated from path.
type ConfigurationManager struct {
	ctx     context.Context
	path    string
	loader  *Loader
	current atomic.Pointer[types.ServiceConfig]
	life    lifecycle.Machine
}

func NewConfigurationManager(ctx context.Context, configPath string) (*ConfigurationManager, error) {
	loader, err := NewLoader()
	if err != nil {
		return nil, types.WrapError(err, "failed to create loader")
	}

	cm := &ConfigurationManager{ctx: ctx, path: configPath, loader: loader}
	if err := cm.Load(); err != nil {
		return nil, types.WrapError(err, "failed to load initial configuration")
	}

	return cm, nil
}

// Load rereads the config file. The previous configuration stays in place
// when the new one fails to load or validate.
func (cm *ConfigurationManager) Load() error {
	ctx, cancel := context.WithTimeout(cm.ctx, loadTimeout)
	defer cancel()

	config, err := cm.loader.LoadFromFile(ctx, cm.path)
	if err != nil {
		if ctx.Err() != nil {
			return types.WrapError(ctx.Err(), "configuration load timeout")
		}
		return err
	}

	cm.current.Store(config)
	return nil
}

func (cm *ConfigurationManager) GetConfig() *types.ServiceConfig {
	return cm.current.Load()
}

func (cm *ConfigurationManager) Start() error {
	return cm.life.Run(types.ErrServerAlreadyRunning, nil)
}

func (cm *ConfigurationManager) Stop() error {
	return cm.life.Halt(types.ErrServerNotRunning, nil)
}

func (cm *ConfigurationManager) IsRunning() bool {
	return cm.life.Running()
}
