package config

import (
	"github.com/spf13/viper"
)

type Signer struct {
	// JWK set with Ed25519 (OKP) private keys, key id is the account address.
	// Empty means an empty, in-memory key store.
	KeysetPath string
}

func setSignerDefaults(v *viper.Viper) {
	v.SetDefault("Signer.KeysetPath", "")
}
