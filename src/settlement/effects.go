package settlement

import (
	"context"
	"time"

	"github.com/warp-contracts/licensing/src/pricing"
	"github.com/warp-contracts/licensing/src/utils/aptos"
	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/model"
	"github.com/warp-contracts/licensing/src/utils/payload"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type failure struct {
	message  string
	attempts uint64

	// Set when the chain executed and rejected the transaction
	status *aptos.TransactionStatus
}

// Moves the attempt to CONFIRMED and applies its ledger effect, atomically
func (self *Coordinator) confirm(ctx context.Context, row *model.Transaction, status *aptos.TransactionStatus) (out *model.Transaction, err error) {
	var changed bool
	err = self.store.Transaction(ctx, func(tx *gorm.DB) (err error) {
		now := self.store.Now()
		res := tx.Model(&model.Transaction{}).
			Where("id = ? AND state = ?", row.ID, model.SettlementStateSubmitted).
			Updates(map[string]interface{}{
				"state":      model.SettlementStateConfirmed,
				"status":     model.TransactionStatusSuccess,
				"vm_status":  status.VmStatus,
				"gas_used":   status.GasUsed,
				"version":    status.Version,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Someone else resolved it
			return nil
		}
		changed = true
		return self.applyEffect(tx, row, now)
	})
	if err != nil {
		self.monitor.GetReport().Settlement.Errors.DbUpdate.Inc()
		self.log.WithError(err).WithField("id", row.ID).Error("Failed to confirm transaction")
		return
	}

	out, err = self.store.GetTransaction(ctx, row.ID)
	if err != nil {
		return
	}

	if changed {
		self.monitor.GetReport().Settlement.State.Confirmed.Inc()
		self.log.WithField("id", row.ID).WithField("type", row.TransactionType).Info("Transaction confirmed")
		self.notify(out)
	}
	return
}

// Moves the attempt from the given state to FAILED and undoes its staged mutation, atomically
func (self *Coordinator) fail(ctx context.Context, row *model.Transaction, from model.SettlementState, f *failure) (out *model.Transaction, err error) {
	var changed bool
	err = self.store.Transaction(ctx, func(tx *gorm.DB) (err error) {
		updates := map[string]interface{}{
			"state":      model.SettlementStateFailed,
			"status":     model.TransactionStatusFailed,
			"last_error": f.message,
			"attempts":   gorm.Expr("attempts + ?", f.attempts),
			"updated_at": self.store.Now(),
		}
		if f.status != nil {
			updates["vm_status"] = f.status.VmStatus
			updates["gas_used"] = f.status.GasUsed
			updates["version"] = f.status.Version
		}

		res := tx.Model(&model.Transaction{}).
			Where("id = ? AND state = ?", row.ID, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		return self.rollback(tx, row)
	})
	if err != nil {
		self.monitor.GetReport().Settlement.Errors.DbUpdate.Inc()
		self.log.WithError(err).WithField("id", row.ID).Error("Failed to mark transaction as failed")
		return
	}

	out, err = self.store.GetTransaction(ctx, row.ID)
	if err != nil {
		return
	}

	if changed {
		self.monitor.GetReport().Settlement.State.Failed.Inc()
		self.log.WithField("id", row.ID).WithField("type", row.TransactionType).WithField("reason", f.message).Warn("Transaction failed")
		self.notify(out)
	}
	return
}

// Only SUBMITTED attempts are confirmed, they always carry the hash
func (self *Coordinator) applyEffect(tx *gorm.DB, row *model.Transaction, now time.Time) (err error) {
	var hash string
	if row.BlockchainHash != nil {
		hash = *row.BlockchainHash
	}

	switch row.TransactionType {
	case model.TransactionTypeMint:
		return tx.Model(&model.Dataset{}).
			Where("id = ?", row.DatasetID).
			Updates(map[string]interface{}{
				"nft_minted":    true,
				"blockchain_tx": hash,
			}).
			Error

	case model.TransactionTypePurchase, model.TransactionTypeGrant:
		return tx.Model(&model.License{}).
			Where("transaction_id = ?", row.ID).
			Update("transaction_hash", hash).
			Error

	case model.TransactionTypePrice:
		base, err := row.Payload.Uint64(payload.ArgBasePrice)
		if err != nil {
			return err
		}
		perQuery, err := row.Payload.Uint64(payload.ArgPerQueryPrice)
		if err != nil {
			return err
		}
		return tx.Model(&model.Dataset{}).
			Where("id = ?", row.DatasetID).
			Updates(map[string]interface{}{
				"price_apt":       pricing.FromSmallestUnit(base),
				"per_query_price": pricing.FromSmallestUnit(perQuery),
			}).
			Error

	case model.TransactionTypeRoyalty:
		arg, ok := row.Payload.Arg(payload.ArgContributors)
		if !ok {
			return errs.Validation("royalty payload has no contributors")
		}
		share, err := row.Payload.Uint64(payload.ArgSharePercentage)
		if err != nil {
			return err
		}
		config := &model.RoyaltyConfig{
			DatasetID:       row.DatasetID,
			Contributors:    arg.Items,
			SharePercentage: share,
			Splits:          row.RoyaltySplits,
			TransactionID:   row.ID,
			UpdatedAt:       now,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dataset_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"contributors", "share_percentage", "splits", "transaction_id", "updated_at"}),
		}).
			Create(config).
			Error
	}
	return nil
}

// Undoes the mutation staged together with the attempt
func (self *Coordinator) rollback(tx *gorm.DB, row *model.Transaction) (err error) {
	switch row.TransactionType {
	case model.TransactionTypePurchase:
		res := tx.Where("transaction_id = ?", row.ID).Delete(&model.License{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		err = tx.Model(&model.Dataset{}).
			Where("id = ? AND downloads > 0", row.DatasetID).
			Update("downloads", gorm.Expr("downloads - 1")).
			Error
		if err != nil {
			return
		}
		self.monitor.GetReport().License.State.Voided.Add(uint64(res.RowsAffected))

	case model.TransactionTypeGrant:
		res := tx.Where("transaction_id = ?", row.ID).Delete(&model.License{})
		if res.Error != nil {
			return res.Error
		}
		self.monitor.GetReport().License.State.Voided.Add(uint64(res.RowsAffected))
	}
	return nil
}
