package settlement

import (
	"encoding/json"

	"github.com/warp-contracts/licensing/src/utils/model"
	"github.com/warp-contracts/licensing/src/utils/payload"

	"github.com/shopspring/decimal"
)

// Mutation to be settled on chain
type Request struct {
	Type model.TransactionType

	// Acting address, signs the submission
	From string

	// Receiver of the funds, if any
	To     string
	Amount decimal.Decimal

	Payload *payload.Payload

	// Royalty split kept off-chain
	RoyaltySplits []uint64
}

type Staged struct {
	Transaction *model.Transaction

	// True if an attempt with the same idempotency key already existed and was returned instead of a new one
	Duplicate bool
}

// Published when a settlement reaches a terminal state
type Notification struct {
	TransactionId   uint64                `json:"transaction_id"`
	TransactionType model.TransactionType `json:"transaction_type"`
	DatasetId       uint64                `json:"dataset_id"`
	State           model.SettlementState `json:"state"`
	BlockchainHash  string                `json:"blockchain_hash,omitempty"`
	VmStatus        string                `json:"vm_status,omitempty"`
	LastError       string                `json:"last_error,omitempty"`
}

func NewNotification(tx *model.Transaction) *Notification {
	out := &Notification{
		TransactionId:   tx.ID,
		TransactionType: tx.TransactionType,
		DatasetId:       tx.DatasetID,
		State:           tx.State,
		VmStatus:        tx.VmStatus,
		LastError:       tx.LastError,
	}
	if tx.BlockchainHash != nil {
		out.BlockchainHash = *tx.BlockchainHash
	}
	return out
}

func (self *Notification) MarshalBinary() ([]byte, error) {
	return json.Marshal(self)
}
