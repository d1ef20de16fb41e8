// Package license issues dataset licenses, either bought by the licensee or granted by the owner.
// Every license is paired with a settlement attempt and is voided when the attempt fails.
package license

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/warp-contracts/licensing/src/ledger"
	"github.com/warp-contracts/licensing/src/settlement"
	"github.com/warp-contracts/licensing/src/utils/address"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/logger"
	"github.com/warp-contracts/licensing/src/utils/model"
	"github.com/warp-contracts/licensing/src/utils/monitoring"
	"github.com/warp-contracts/licensing/src/utils/payload"
	"github.com/warp-contracts/licensing/src/utils/signer"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const secondsPerDay = 24 * 60 * 60

// Latest expiry that survives RFC 3339 encoding
var maxExpiry = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

type GrantRequest struct {
	// Wallet of the dataset owner, signs the grant
	Owner        string
	DatasetId    uint64
	Licensee     string
	DurationSecs int64
	LicenseType  model.LicenseType
}

type PurchaseRequest struct {
	DatasetId   uint64
	Wallet      string
	LicenseType model.LicenseType

	// Only used by time-bounded licenses. Nil or 0 means no expiry.
	DurationDays *int64
}

type Manager struct {
	config      *config.Config
	log         *logrus.Entry
	store       *ledger.Store
	coordinator *settlement.Coordinator
	signer      signer.Signer
	monitor     monitoring.Monitor
}

func NewManager(config *config.Config) (self *Manager) {
	self = new(Manager)
	self.config = config
	self.log = logger.NewSublogger("license")
	return
}

func (self *Manager) WithStore(store *ledger.Store) *Manager {
	self.store = store
	return self
}

func (self *Manager) WithCoordinator(coordinator *settlement.Coordinator) *Manager {
	self.coordinator = coordinator
	return self
}

func (self *Manager) WithSigner(signer signer.Signer) *Manager {
	self.signer = signer
	return self
}

func (self *Manager) WithMonitor(monitor monitoring.Monitor) *Manager {
	self.monitor = monitor
	return self
}

// Buys a license for the wallet. The wallet signs the payment to the dataset owner.
func (self *Manager) Purchase(ctx context.Context, req *PurchaseRequest) (out *model.License, err error) {
	if !req.LicenseType.IsValid() {
		return nil, errs.Validation("invalid license type %d", req.LicenseType)
	}
	var days int64
	if req.DurationDays != nil {
		days = *req.DurationDays
	}
	if days < 0 {
		return nil, errs.Validation("duration can't be negative")
	}
	if days > math.MaxInt64/secondsPerDay {
		return nil, errs.Validation("duration of %d days is out of range", days)
	}

	wallet, err := address.Normalize(req.Wallet)
	if err != nil {
		return nil, errs.Validation("invalid wallet address %q", req.Wallet)
	}

	var license *model.License
	err = self.store.Transaction(ctx, func(tx *gorm.DB) (err error) {
		dataset, err := lockDataset(tx, req.DatasetId)
		if err != nil {
			return
		}

		if address.Equal(dataset.Owner.WalletAddress, wallet) {
			self.monitor.GetReport().License.Errors.SelfLicense.Inc()
			return errs.SelfLicense("owner can't license own dataset %d", dataset.ID)
		}

		user, err := ledger.UpsertUser(tx, wallet, self.store.Now())
		if err != nil {
			return
		}

		now := self.store.Now()
		err = self.checkNoLiveLicense(tx, user.ID, dataset.ID, now)
		if err != nil {
			return
		}

		expires, err := expiresAt(req.LicenseType, now, days*secondsPerDay)
		if err != nil {
			return
		}

		staged, err := self.coordinator.Stage(tx, &settlement.Request{
			Type:    model.TransactionTypePurchase,
			From:    wallet,
			To:      dataset.Owner.WalletAddress,
			Amount:  dataset.PriceApt,
			Payload: payload.PayForLicense(dataset.Owner.WalletAddress, dataset.ID),
		})
		if err != nil {
			return
		}
		if staged.Duplicate {
			self.monitor.GetReport().License.Errors.Conflicts.Inc()
			return errs.Conflict("purchase of dataset %d is already in flight", dataset.ID)
		}

		license = &model.License{
			UserID:        user.ID,
			DatasetID:     dataset.ID,
			LicenseType:   req.LicenseType,
			ExpiresAt:     expires,
			TransactionID: staged.Transaction.ID,
			PricePaid:     pricePaid(req.LicenseType, dataset),
			PurchasedAt:   now,
		}
		err = tx.Create(license).Error
		if err != nil {
			return
		}

		return tx.Model(&model.Dataset{}).
			Where("id = ?", dataset.ID).
			Update("downloads", gorm.Expr("downloads + 1")).
			Error
	})
	if err != nil {
		return
	}

	self.monitor.GetReport().License.State.Purchased.Inc()
	self.log.WithField("dataset_id", req.DatasetId).WithField("wallet", wallet).WithField("type", req.LicenseType).Info("License purchased")

	return self.settle(ctx, license)
}

// Grants a license on behalf of the dataset owner. Nothing is paid.
func (self *Manager) Grant(ctx context.Context, req *GrantRequest) (out *model.License, err error) {
	if !req.LicenseType.IsValid() {
		return nil, errs.Validation("invalid license type %d", req.LicenseType)
	}
	if req.DurationSecs < 0 {
		return nil, errs.Validation("duration can't be negative")
	}

	licensee, err := address.Normalize(req.Licensee)
	if err != nil {
		return nil, errs.Validation("invalid licensee address %q", req.Licensee)
	}

	owner, err := address.Normalize(req.Owner)
	if err != nil {
		return nil, errs.Validation("invalid owner address %q", req.Owner)
	}

	var license *model.License
	err = self.store.Transaction(ctx, func(tx *gorm.DB) (err error) {
		dataset, err := ledger.GetDataset(tx, req.DatasetId)
		if err != nil {
			return
		}

		if !address.Equal(dataset.Owner.WalletAddress, owner) || !self.signer.HasKey(owner) {
			self.monitor.GetReport().License.Errors.Ownership.Inc()
			return errs.Ownership("%s can't grant licenses of dataset %d", owner, dataset.ID)
		}

		if address.Equal(owner, licensee) {
			self.monitor.GetReport().License.Errors.SelfLicense.Inc()
			return errs.SelfLicense("owner can't license own dataset %d", dataset.ID)
		}

		user, err := ledger.UpsertUser(tx, licensee, self.store.Now())
		if err != nil {
			return
		}

		now := self.store.Now()
		err = self.checkNoLiveLicense(tx, user.ID, dataset.ID, now)
		if err != nil {
			return
		}

		expires, err := expiresAt(req.LicenseType, now, req.DurationSecs)
		if err != nil {
			return
		}

		staged, err := self.coordinator.Stage(tx, &settlement.Request{
			Type:    model.TransactionTypeGrant,
			From:    owner,
			To:      licensee,
			Payload: payload.GrantLicense(dataset.ID, licensee, uint64(req.DurationSecs), uint64(req.LicenseType)),
		})
		if err != nil {
			return
		}
		if staged.Duplicate {
			self.monitor.GetReport().License.Errors.Conflicts.Inc()
			return errs.Conflict("grant of dataset %d to %s is already in flight", dataset.ID, licensee)
		}

		license = &model.License{
			UserID:        user.ID,
			DatasetID:     dataset.ID,
			LicenseType:   req.LicenseType,
			ExpiresAt:     expires,
			TransactionID: staged.Transaction.ID,
			PricePaid:     decimal.Zero,
			PurchasedAt:   now,
		}
		return tx.Create(license).Error
	})
	if err != nil {
		return
	}

	self.monitor.GetReport().License.State.Granted.Inc()
	self.log.WithField("dataset_id", req.DatasetId).WithField("licensee", licensee).WithField("type", req.LicenseType).Info("License granted")

	return self.settle(ctx, license)
}

// Submits the paired settlement. A failed settlement voids the license.
func (self *Manager) settle(ctx context.Context, license *model.License) (out *model.License, err error) {
	_, err = self.coordinator.Submit(ctx, license.TransactionID)
	if err != nil {
		return nil, err
	}
	return self.store.GetLicense(ctx, license.ID)
}

// Licenses of the wallet with their datasets, unknown wallet has none
func (self *Manager) ListByWallet(ctx context.Context, wallet string) ([]model.License, error) {
	return self.store.ListLicensesByWallet(ctx, wallet)
}

func IsActive(license *model.License, now time.Time) bool {
	return license.IsActive(now)
}

func (self *Manager) checkNoLiveLicense(tx *gorm.DB, userId, datasetId uint64, now time.Time) (err error) {
	var live int64
	err = tx.Model(&model.License{}).
		Where("user_id = ? AND dataset_id = ?", userId, datasetId).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&live).
		Error
	if err != nil {
		return
	}
	if live > 0 {
		self.monitor.GetReport().License.Errors.Conflicts.Inc()
		return errs.Conflict("user already holds a license of dataset %d", datasetId)
	}
	return nil
}

// Loads the dataset, locking its row until the transaction ends where the database supports it.
// Sqlite serializes writers anyway.
func lockDataset(tx *gorm.DB, id uint64) (out *model.Dataset, err error) {
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: clause.CurrentTable}})
	}

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

// Only time-bounded licenses with a duration expire.
// Works on whole seconds, time.Duration can't hold more than ~292 years.
func expiresAt(licenseType model.LicenseType, now time.Time, secs int64) (*time.Time, error) {
	if licenseType != model.LicenseTypeTimeBounded || secs <= 0 {
		return nil, nil
	}
	if secs > maxExpiry.Unix()-now.Unix() {
		return nil, errs.Validation("duration of %d seconds is out of range", secs)
	}
	out := time.Unix(now.Unix()+secs, int64(now.Nanosecond())).In(now.Location())
	return &out, nil
}

// Metered licenses record the unit price
func pricePaid(licenseType model.LicenseType, dataset *model.Dataset) decimal.Decimal {
	if licenseType == model.LicenseTypeMetered {
		return dataset.PerQueryPrice
	}
	return dataset.PriceApt
}
