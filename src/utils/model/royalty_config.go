package model

import "time"

const TableRoyaltyConfig = "royalty_configs"

// Confirmed royalty configuration of a dataset
type RoyaltyConfig struct {
	ID        uint64 `gorm:"primaryKey" json:"id"`
	DatasetID uint64 `gorm:"uniqueIndex; not null" json:"dataset_id"`

	Contributors    []string `gorm:"serializer:json; type:text; not null" json:"contributors"`
	SharePercentage uint64   `gorm:"not null" json:"share_percentage"`

	// Basis points per contributor. Nil means the split wasn't specified off-chain.
	Splits []uint64 `gorm:"serializer:json; type:text" json:"splits,omitempty"`

	TransactionID uint64    `gorm:"not null" json:"transaction_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (RoyaltyConfig) TableName() string {
	return TableRoyaltyConfig
}
