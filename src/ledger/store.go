// Package ledger is the off-chain record of users, datasets, licenses and settlement attempts.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/warp-contracts/licensing/src/utils/address"
	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/logger"
	"github.com/warp-contracts/licensing/src/utils/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Category value that disables filtering
const CategoryAll = "All"

type Store struct {
	db  *gorm.DB
	log *logrus.Entry
	now func() time.Time
}

type NewDataset struct {
	Title         string
	Description   string
	Category      string
	FileHash      string
	IpfsUri       string
	PriceApt      decimal.Decimal
	PerQueryPrice decimal.Decimal
	SizeMb        float64
	Format        string
	Tags          string
	OwnerWallet   string
}

type DatasetFilter struct {
	Category string
	Search   string
}

func NewStore(db *gorm.DB) (self *Store) {
	self = new(Store)
	self.db = db
	self.log = logger.NewSublogger("ledger")
	self.now = time.Now
	return
}

func (self *Store) WithClock(now func() time.Time) *Store {
	self.now = now
	return self
}

func (self *Store) DB() *gorm.DB {
	return self.db
}

// Current time, as stored in the database
func (self *Store) Now() time.Time {
	return self.now().UTC().Truncate(time.Microsecond)
}

// Runs f in a single database transaction. Inside f use only tx.
func (self *Store) Transaction(ctx context.Context, f func(tx *gorm.DB) error) error {
	return self.db.WithContext(ctx).Transaction(f)
}

func (self *Store) CreateDataset(ctx context.Context, in *NewDataset) (out *model.Dataset, err error) {
	if strings.TrimSpace(in.FileHash) == "" {
		err = errs.Validation("file hash is required")
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		err = errs.Validation("title is required")
		return
	}
	if in.PriceApt.IsNegative() || in.PerQueryPrice.IsNegative() {
		err = errs.Validation("prices can't be negative")
		return
	}

	err = self.Transaction(ctx, func(tx *gorm.DB) (err error) {
		owner, err := UpsertUser(tx, in.OwnerWallet, self.Now())
		if err != nil {
			return
		}

		out = &model.Dataset{
			Title:         in.Title,
			Description:   in.Description,
			Category:      in.Category,
			FileHash:      in.FileHash,
			IpfsUri:       in.IpfsUri,
			PriceApt:      in.PriceApt,
			PerQueryPrice: in.PerQueryPrice,
			OwnerID:       owner.ID,
			Owner:         *owner,
			SizeMb:        in.SizeMb,
			Format:        in.Format,
			Tags:          in.Tags,
			CreatedAt:     self.Now(),
		}

		err = tx.Omit("Owner").Create(out).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.Conflict("dataset with file hash %s already exists", in.FileHash)
		}
		return
	})
	if err != nil {
		out = nil
		return
	}

	self.log.WithField("id", out.ID).WithField("owner", out.Owner.WalletAddress).Info("Created dataset")
	return
}

func (self *Store) GetDataset(ctx context.Context, id uint64) (out *model.Dataset, err error) {
	return GetDataset(self.db.WithContext(ctx), id)
}

// Loads the dataset with its owner
func GetDataset(tx *gorm.DB, id uint64) (out *model.Dataset, err error) {
	out = new(model.Dataset)
	err = tx.Preload("Owner").First(out, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("dataset %d", id)
	}
	if err != nil {
		return nil, err
	}
	return
}

func (self *Store) ListDatasets(ctx context.Context, filter DatasetFilter) (out []model.Dataset, err error) {
	query := self.db.WithContext(ctx).Preload("Owner").Order("id")

	if filter.Category != "" && filter.Category != CategoryAll {
		query = query.Where("category = ?", filter.Category)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	err = query.Find(&out).Error
	return
}

// Datasets owned by the wallet. Unknown wallet has none.
func (self *Store) ListDatasetsByOwner(ctx context.Context, wallet string) (out []model.Dataset, err error) {
	user, err := self.GetUserByWallet(ctx, wallet)
	if errors.Is(err, errs.ErrNotFound) {
		return []model.Dataset{}, nil
	}
	if err != nil {
		return
	}

	err = self.db.WithContext(ctx).
		Preload("Owner").
		Where("owner_id = ?", user.ID).
		Order("id").
		Find(&out).
		Error
	return
}

func (self *Store) Categories(ctx context.Context) (out []string, err error) {
	err = self.db.WithContext(ctx).
		Model(&model.Dataset{}).
		Distinct("category").
		Order("category").
		Pluck("category", &out).
		Error
	return
}

// Marks the dataset as minted with an externally known chain transaction
func (self *Store) MarkMinted(ctx context.Context, id uint64, hash string) (out *model.Dataset, err error) {
	if strings.TrimSpace(hash) == "" {
		err = errs.Validation("transaction hash is required")
		return
	}

	err = self.Transaction(ctx, func(tx *gorm.DB) (err error) {
		out, err = GetDataset(tx, id)
		if err != nil {
			return
		}

		out.NftMinted = true
		out.BlockchainTx = &hash

		return tx.Model(&model.Dataset{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"nft_minted":    true,
				"blockchain_tx": hash,
			}).
			Error
	})
	if err != nil {
		out = nil
	}
	return
}

func (self *Store) GetUserByWallet(ctx context.Context, wallet string) (out *model.User, err error) {
	normalized, err := address.Normalize(wallet)
	if err != nil {
		return nil, errs.NotFound("user %s", wallet)
	}

	out = new(model.User)
	err = self.db.WithContext(ctx).Where("wallet_address = ?", normalized).First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("user %s", wallet)
	}
	if err != nil {
		return nil, err
	}
	return
}

// Licenses of the wallet with their datasets. Voided licenses are never returned.
func (self *Store) ListLicensesByWallet(ctx context.Context, wallet string) (out []model.License, err error) {
	user, err := self.GetUserByWallet(ctx, wallet)
	if errors.Is(err, errs.ErrNotFound) {
		return []model.License{}, nil
	}
	if err != nil {
		return
	}

	err = self.db.WithContext(ctx).
		Preload("Dataset").
		Where("user_id = ?", user.ID).
		Order("id").
		Find(&out).
		Error
	return
}

func (self *Store) GetLicense(ctx context.Context, id uint64) (out *model.License, err error) {
	out = new(model.License)
	err = self.db.WithContext(ctx).First(out, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("license %d", id)
	}
	if err != nil {
		return nil, err
	}
	return
}

func (self *Store) GetTransaction(ctx context.Context, id uint64) (out *model.Transaction, err error) {
	out = new(model.Transaction)
	err = self.db.WithContext(ctx).First(out, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("transaction %d", id)
	}
	if err != nil {
		return nil, err
	}
	return
}

func (self *Store) GetRoyaltyConfig(ctx context.Context, datasetId uint64) (out *model.RoyaltyConfig, err error) {
	out = new(model.RoyaltyConfig)
	err = self.db.WithContext(ctx).Where("dataset_id = ?", datasetId).First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("royalty config of dataset %d", datasetId)
	}
	if err != nil {
		return nil, err
	}
	return
}
