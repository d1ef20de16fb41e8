package report

import (
	"go.uber.org/atomic"
)

type SettlementErrors struct {
	SubmitRejected  atomic.Uint64 `json:"submit_rejected"`
	SubmitExhausted atomic.Uint64 `json:"submit_exhausted"`
	SubmitRetries   atomic.Uint64 `json:"submit_retries"`
	PollFailed      atomic.Uint64 `json:"poll_failed"`
	Expired         atomic.Uint64 `json:"expired"`
	DbUpdate        atomic.Uint64 `json:"db_update"`
	Reconciler      atomic.Uint64 `json:"reconciler"`
}

type SettlementState struct {
	Staged     atomic.Uint64 `json:"staged"`
	Duplicates atomic.Uint64 `json:"duplicates"`
	Submitted  atomic.Uint64 `json:"submitted"`
	Confirmed  atomic.Uint64 `json:"confirmed"`
	Failed     atomic.Uint64 `json:"failed"`
	Polled     atomic.Uint64 `json:"polled"`

	ReconcilerRuns              atomic.Uint64 `json:"reconciler_runs"`
	ReconcilerTransactionsTaken atomic.Uint64 `json:"reconciler_transactions_taken"`
}

type SettlementReport struct {
	State  SettlementState  `json:"state"`
	Errors SettlementErrors `json:"errors"`
}
