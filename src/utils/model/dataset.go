package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const TableDataset = "datasets"

// Dataset is owned by exactly one user, ownership is fixed at creation
type Dataset struct {
	ID          uint64 `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"index" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"index" json:"category"`

	// Content identity, two datasets never share it
	FileHash string `gorm:"uniqueIndex; not null" json:"file_hash"`
	IpfsUri  string `json:"ipfs_uri"`

	// Prices in the display unit (APT)
	PriceApt      decimal.Decimal `gorm:"type:numeric(28,8); not null; default:0" json:"price_apt"`
	PerQueryPrice decimal.Decimal `gorm:"type:numeric(28,8); not null; default:0" json:"per_query_price"`

	OwnerID uint64 `gorm:"index; not null" json:"owner_id"`
	Owner   User   `json:"owner"`

	NftMinted    bool    `gorm:"not null; default:false" json:"nft_minted"`
	BlockchainTx *string `json:"blockchain_tx,omitempty"`

	SizeMb float64 `json:"size_mb"`
	Format string  `json:"format"`
	Tags   string  `json:"tags"`

	// Only ever incremented, except when a purchase is voided
	Downloads int64 `gorm:"not null; default:0" json:"downloads"`

	CreatedAt time.Time `json:"created_at"`
}

func (Dataset) TableName() string {
	return TableDataset
}
