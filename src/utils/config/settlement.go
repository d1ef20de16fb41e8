package config

import (
	"time"

	"github.com/spf13/viper"
)

type Settlement struct {
	// Max number of submission attempts of a single transaction
	MaxAttempts uint64

	// Submission backoff
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Status polling backoff used when waiting for a terminal status
	PollInterval    time.Duration
	PollMaxInterval time.Duration

	// How often the reconciler looks for unresolved transactions
	ReconcilerInterval time.Duration

	// PENDING transactions older than this are resubmitted by the reconciler
	StalePendingAge time.Duration

	// SUBMITTED transaction unknown to the chain fails this long after its expiration timestamp
	ExpirationMargin time.Duration

	// Max number of transactions handled in one reconciler run
	MaxTransactionsPerRun int

	// Num of workers polling the chain
	WorkerPoolSize int
}

func setSettlementDefaults(v *viper.Viper) {
	v.SetDefault("Settlement.MaxAttempts", "5")
	v.SetDefault("Settlement.InitialInterval", "200ms")
	v.SetDefault("Settlement.MaxInterval", "5s")
	v.SetDefault("Settlement.PollInterval", "500ms")
	v.SetDefault("Settlement.PollMaxInterval", "5s")
	v.SetDefault("Settlement.ReconcilerInterval", "10s")
	v.SetDefault("Settlement.StalePendingAge", "1m")
	v.SetDefault("Settlement.ExpirationMargin", "1m")
	v.SetDefault("Settlement.MaxTransactionsPerRun", "100")
	v.SetDefault("Settlement.WorkerPoolSize", "8")
}
