// Package app wires the server and the CLI together with fx.
package app

import (
	"context"

	"challenge-reward-system/config"
	"challenge-reward-system/utils"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// CoreModule provides configuration and the logger.
var CoreModule = fx.Module("core",
	fx.Provide(
		LoadConfig,
		NewLogger,
	),
)

func LoadConfig() (*config.Config, error) {
	return config.Load()
}

func NewLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	logger, err := utils.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}
