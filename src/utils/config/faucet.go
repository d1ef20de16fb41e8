package config

import (
	"time"

	"github.com/spf13/viper"
)

type Faucet struct {
	// Overall deadline of waiting for the funded balance
	Timeout time.Duration

	// Balance is never polled more often than this
	MinPollInterval time.Duration
	MaxPollInterval time.Duration

	// Amount in octas used when none is requested
	DefaultAmount uint64
}

func setFaucetDefaults(v *viper.Viper) {
	v.SetDefault("Faucet.Timeout", "30s")
	v.SetDefault("Faucet.MinPollInterval", "500ms")
	v.SetDefault("Faucet.MaxPollInterval", "4s")
	v.SetDefault("Faucet.DefaultAmount", "100000000")
}
