package common

import (
	"context"

	"github.com/warp-contracts/licensing/src/utils/config"
)

type configKey struct{}

func SetConfig(ctx context.Context, config *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, config)
}

func GetConfig(ctx context.Context) *config.Config {
	config, _ := ctx.Value(configKey{}).(*config.Config)
	return config
}
