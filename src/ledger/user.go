package ledger

import (
	"errors"
	"time"

	"github.com/warp-contracts/licensing/src/utils/address"
	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Number of address digits used in the derived username
const usernameDigits = 8

// Candidate usernames for the address, tried in order
func usernames(wallet string) []string {
	digits := wallet[2:]
	return []string{
		"user_" + digits[:usernameDigits],
		"user_" + digits[:usernameDigits] + digits[len(digits)-4:],
		"user_" + digits,
	}
}

// Finds the user by wallet, creates it on first reference. Safe to call concurrently.
func UpsertUser(tx *gorm.DB, wallet string, now time.Time) (out *model.User, err error) {
	normalized, err := address.Normalize(wallet)
	if err != nil {
		return nil, errs.Validation("invalid wallet address %q", wallet)
	}

	out = new(model.User)
	err = tx.Where("wallet_address = ?", normalized).First(out).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for _, username := range usernames(normalized) {
		var taken int64
		err = tx.Model(&model.User{}).Where("username = ?", username).Count(&taken).Error
		if err != nil {
			return nil, err
		}
		if taken > 0 {
			continue
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wallet_address"}},
			DoNothing: true,
		}).Create(&model.User{
			WalletAddress: normalized,
			Username:      username,
			CreatedAt:     now,
		}).Error
		if err != nil {
			return nil, err
		}
		break
	}

	// Reload, the row may have been inserted by someone else
	out = new(model.User)
	err = tx.Where("wallet_address = ?", normalized).First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Conflict("couldn't derive a free username for %s", normalized)
	}
	if err != nil {
		return nil, err
	}
	return
}
