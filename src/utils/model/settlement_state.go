package model

import "database/sql/driver"

// Lifecycle of a settlement attempt
type SettlementState string

const (
	SettlementStatePending   SettlementState = "PENDING"
	SettlementStateSubmitted SettlementState = "SUBMITTED"
	SettlementStateConfirmed SettlementState = "CONFIRMED"
	SettlementStateFailed    SettlementState = "FAILED"
)

func (self SettlementState) IsTerminal() bool {
	return self == SettlementStateConfirmed || self == SettlementStateFailed
}

// Audit status, derived from the state
func (self SettlementState) Status() TransactionStatus {
	switch self {
	case SettlementStateConfirmed:
		return TransactionStatusSuccess
	case SettlementStateFailed:
		return TransactionStatusFailed
	}
	return TransactionStatusPending
}

func (self *SettlementState) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*self = SettlementState(v)
	case []byte:
		*self = SettlementState(v)
	}
	return nil
}

func (self SettlementState) Value() (driver.Value, error) {
	return string(self), nil
}

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

type TransactionType string

const (
	TransactionTypeMint     TransactionType = "mint"
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeRoyalty  TransactionType = "royalty"
	TransactionTypeGrant    TransactionType = "grant"
	TransactionTypePrice    TransactionType = "price"
)
