package response

import (
	"time"

	"github.com/warp-contracts/licensing/src/settlement"
	"github.com/warp-contracts/licensing/src/utils/model"

	"github.com/shopspring/decimal"
)

type Dataset struct {
	model.Dataset
	OwnerWallet string `json:"owner_wallet"`
}

func DatasetToResponse(dataset *model.Dataset) *Dataset {
	return &Dataset{
		Dataset:     *dataset,
		OwnerWallet: dataset.Owner.WalletAddress,
	}
}

func DatasetsToResponse(datasets []model.Dataset) []*Dataset {
	out := make([]*Dataset, len(datasets))
	for i := range datasets {
		out[i] = DatasetToResponse(&datasets[i])
	}
	return out
}

type License struct {
	ID              uint64            `json:"id"`
	DatasetId       uint64            `json:"dataset_id"`
	DatasetTitle    string            `json:"dataset_title,omitempty"`
	LicenseType     model.LicenseType `json:"license_type"`
	LicenseTypeName string            `json:"license_type_name"`
	ExpiresAt       *time.Time        `json:"expires_at"`
	TransactionId   uint64            `json:"transaction_id"`
	TransactionHash *string           `json:"transaction_hash,omitempty"`
	PricePaid       decimal.Decimal   `json:"price_paid"`
	PurchasedAt     time.Time         `json:"purchased_at"`
	IsActive        bool              `json:"is_active"`
}

func LicenseToResponse(license *model.License, now time.Time) *License {
	return &License{
		ID:              license.ID,
		DatasetId:       license.DatasetID,
		DatasetTitle:    license.Dataset.Title,
		LicenseType:     license.LicenseType,
		LicenseTypeName: license.LicenseType.String(),
		ExpiresAt:       license.ExpiresAt,
		TransactionId:   license.TransactionID,
		TransactionHash: license.TransactionHash,
		PricePaid:       license.PricePaid,
		PurchasedAt:     license.PurchasedAt,
		IsActive:        license.IsActive(now),
	}
}

func LicensesToResponse(licenses []model.License, now time.Time) []*License {
	out := make([]*License, len(licenses))
	for i := range licenses {
		out[i] = LicenseToResponse(&licenses[i], now)
	}
	return out
}

type Settlement struct {
	*model.Transaction
	Duplicate bool `json:"duplicate"`
}

func StagedToResponse(staged *settlement.Staged) *Settlement {
	return &Settlement{
		Transaction: staged.Transaction,
		Duplicate:   staged.Duplicate,
	}
}

// Newly created account. The private key never leaves the key store.
type Account struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
}

type Categories struct {
	Categories []string `json:"categories"`
}
