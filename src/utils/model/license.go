package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const TableLicense = "licenses"

type LicenseType int

const (
	// Never expires, unlimited access
	LicenseTypePerpetual LicenseType = 0

	// Access ends at ExpiresAt
	LicenseTypeTimeBounded LicenseType = 1

	// Priced per query. Metering is enforced elsewhere.
	LicenseTypeMetered LicenseType = 2
)

func (self LicenseType) IsValid() bool {
	return self >= LicenseTypePerpetual && self <= LicenseTypeMetered
}

func (self LicenseType) String() string {
	switch self {
	case LicenseTypePerpetual:
		return "perpetual"
	case LicenseTypeTimeBounded:
		return "time-bounded"
	case LicenseTypeMetered:
		return "metered"
	}
	return "unknown"
}

type License struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	// Licensee
	UserID uint64 `gorm:"index; not null" json:"user_id"`
	User   User   `json:"-"`

	DatasetID uint64  `gorm:"index; not null" json:"dataset_id"`
	Dataset   Dataset `json:"-"`

	LicenseType LicenseType `gorm:"not null" json:"license_type"`

	// Null for perpetual licenses and licenses without duration
	ExpiresAt *time.Time `json:"expires_at"`

	// Settlement attempt paired with this license
	TransactionID uint64 `gorm:"index; not null" json:"transaction_id"`

	// Chain transaction id, set once the settlement is confirmed
	TransactionHash *string `json:"transaction_hash,omitempty"`

	PricePaid   decimal.Decimal `gorm:"type:numeric(28,8); not null; default:0" json:"price_paid"`
	PurchasedAt time.Time       `gorm:"not null" json:"purchased_at"`

	// Set when the paired settlement failed. Voided licenses are invisible to reads.
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (License) TableName() string {
	return TableLicense
}

// Is the license usable at the given moment
func (self *License) IsActive(now time.Time) bool {
	if self.DeletedAt.Valid {
		return false
	}
	if self.ExpiresAt == nil {
		return true
	}
	return now.Before(*self.ExpiresAt)
}
