package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	ChainBackendLive      = "live"
	ChainBackendSimulated = "simulated"
)

type Chain struct {
	// live or simulated
	Backend string

	// Aptos fullnode REST API, including the /v1 suffix
	NodeUrl string

	// Aptos faucet
	FaucetUrl string

	// Address the DatasetNFT, Licensing, PaymentRouter and Royalties modules are published under
	ContractAddress string

	// Timeout of a single HTTP request
	RequestTimeout time.Duration

	// Max number of requests per second sent to the node
	RequestsPerSecond float64

	// Gas settings used for every submitted transaction
	MaxGasAmount uint64
	GasUnitPrice uint64

	// Submitted transaction is valid for this long
	TxExpiration time.Duration

	// How long a locally incremented sequence number is trusted
	SequenceCacheTTL time.Duration
}

func setChainDefaults(v *viper.Viper) {
	v.SetDefault("Chain.Backend", ChainBackendSimulated)
	v.SetDefault("Chain.NodeUrl", "https://fullnode.testnet.aptoslabs.com/v1")
	v.SetDefault("Chain.FaucetUrl", "https://faucet.testnet.aptoslabs.com")
	v.SetDefault("Chain.ContractAddress", "0x1")
	v.SetDefault("Chain.RequestTimeout", "15s")
	v.SetDefault("Chain.RequestsPerSecond", "20")
	v.SetDefault("Chain.MaxGasAmount", "200000")
	v.SetDefault("Chain.GasUnitPrice", "100")
	v.SetDefault("Chain.TxExpiration", "2m")
	v.SetDefault("Chain.SequenceCacheTTL", "1m")
}
