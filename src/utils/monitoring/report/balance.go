package report

import (
	"go.uber.org/atomic"
)

type BalanceErrors struct {
	Query          atomic.Uint64 `json:"query"`
	FundingTimeout atomic.Uint64 `json:"funding_timeout"`
}

type BalanceState struct {
	Queries     atomic.Uint64 `json:"queries"`
	Fundings    atomic.Uint64 `json:"fundings"`
	FaucetPolls atomic.Uint64 `json:"faucet_polls"`
}

type BalanceReport struct {
	State  BalanceState  `json:"state"`
	Errors BalanceErrors `json:"errors"`
}
