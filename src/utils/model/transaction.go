package model

import (
	"time"

	"github.com/warp-contracts/licensing/src/utils/payload"

	"github.com/shopspring/decimal"
)

const TableTransaction = "transactions"

// Audit record of a settlement attempt. Never deleted.
type Transaction struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	// Acting address, signs the submission
	FromAddress string `gorm:"index; not null" json:"from_address"`
	ToAddress   string `json:"to_address"`

	AmountApt       decimal.Decimal   `gorm:"type:numeric(28,8); not null; default:0" json:"amount_apt"`
	TransactionType TransactionType   `gorm:"type:varchar(16); not null" json:"transaction_type"`
	BlockchainHash  *string           `gorm:"uniqueIndex" json:"blockchain_hash,omitempty"`
	Status          TransactionStatus `gorm:"type:varchar(16); not null; index" json:"status"`

	State SettlementState `gorm:"type:varchar(16); not null; index" json:"state"`

	// Content addressed key of the operation. Only one attempt per key may be in flight.
	IdempotencyKey string `gorm:"type:varchar(64); not null; index:idx_transactions_idempotency_key; uniqueIndex:idx_transactions_in_flight_key,where:state = 'PENDING' OR state = 'SUBMITTED'" json:"idempotency_key"`

	DatasetID uint64          `gorm:"index; not null" json:"dataset_id"`
	Payload   payload.Payload `gorm:"serializer:json; type:text; not null" json:"payload"`

	// Off-chain split in basis points, stored with the royalty config once confirmed
	RoyaltySplits []uint64 `gorm:"serializer:json; type:text" json:"royalty_splits,omitempty"`

	Attempts  uint64 `gorm:"not null; default:0" json:"attempts"`
	LastError string `gorm:"type:text" json:"last_error,omitempty"`

	// Reported by the chain once terminal
	VmStatus string `json:"vm_status,omitempty"`
	GasUsed  uint64 `json:"gas_used,omitempty"`
	Version  uint64 `json:"version,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Transaction) TableName() string {
	return TableTransaction
}
