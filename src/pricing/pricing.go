// Package pricing converts display amounts to the chain's smallest unit and validates royalty settings.
// It is the only place where display and chain units meet.
package pricing

import (
	"math"
	"math/big"
	"strings"

	"github.com/warp-contracts/licensing/src/utils/address"
	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/payload"

	"github.com/shopspring/decimal"
)

const (
	// Fractional digits of the display unit, 1 APT = 10^8 octas
	Decimals = 8

	MaxSharePercentage = 100

	// Explicit splits are in basis points and must add up to this
	BasisPointsTotal = 10000
)

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// Exact conversion of a display amount to octas
func ToSmallestUnit(amount decimal.Decimal) (uint64, error) {
	if amount.IsNegative() {
		return 0, errs.Validation("amount %s is negative", amount)
	}

	shifted := amount.Shift(Decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, errs.Precision("amount %s has more than %d fractional digits", amount, Decimals)
	}

	if shifted.GreaterThan(maxUint64) {
		return 0, errs.Validation("amount %s is too large", amount)
	}

	return shifted.BigInt().Uint64(), nil
}

func FromSmallestUnit(octas uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(octas), -Decimals)
}

// Parses a display amount, e.g. "1.5"
func ParseAmount(in string) (out decimal.Decimal, err error) {
	out, err = decimal.NewFromString(strings.TrimSpace(in))
	if err != nil {
		err = errs.Wrap(errs.ErrValidation, err, "invalid amount %q", in)
	}
	return
}

// Builds the set_price payload with both prices in octas
func SetPrice(datasetId uint64, basePrice, perQueryPrice decimal.Decimal) (out *payload.Payload, err error) {
	base, err := ToSmallestUnit(basePrice)
	if err != nil {
		return
	}

	perQuery, err := ToSmallestUnit(perQueryPrice)
	if err != nil {
		return
	}

	return payload.SetPrice(datasetId, base, perQuery), nil
}

// Contributors must be distinct valid addresses, share must be within (0, 100]
func ValidateRoyalty(contributors []string, sharePercentage uint64) (normalized []string, err error) {
	if sharePercentage == 0 || sharePercentage > MaxSharePercentage {
		err = errs.Validation("share percentage %d is outside of (0, %d]", sharePercentage, MaxSharePercentage)
		return
	}

	if len(contributors) == 0 {
		err = errs.Validation("at least one contributor is required")
		return
	}

	seen := make(map[string]struct{}, len(contributors))
	normalized = make([]string, 0, len(contributors))
	for _, contributor := range contributors {
		addr, e := address.Normalize(contributor)
		if e != nil {
			return nil, errs.Validation("invalid contributor address %q", contributor)
		}
		if _, ok := seen[addr]; ok {
			return nil, errs.Validation("duplicate contributor %s", contributor)
		}
		seen[addr] = struct{}{}
		normalized = append(normalized, addr)
	}
	return
}

// Explicit split: one positive basis point value per contributor, adding up to 100%.
// Empty splits mean the split is unspecified.
func ValidateSplits(contributors []string, splits []uint64) error {
	if len(splits) == 0 {
		return nil
	}

	if len(splits) != len(contributors) {
		return errs.Validation("got %d splits for %d contributors", len(splits), len(contributors))
	}

	var total uint64
	for i, split := range splits {
		if split == 0 {
			return errs.Validation("split of contributor %d is zero", i)
		}
		total += split
		if total > BasisPointsTotal {
			return errs.Validation("splits exceed %d basis points", BasisPointsTotal)
		}
	}

	if total != BasisPointsTotal {
		return errs.Validation("splits add up to %d basis points, expected %d", total, BasisPointsTotal)
	}
	return nil
}
