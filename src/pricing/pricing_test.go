package pricing

import (
	"math"
	"testing"

	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/payload"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	contributorA = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	contributorB = "0x00000000000000000000000000000000000000000000000000000000000000bb"
)

func TestToSmallestUnit(t *testing.T) {
	for in, expected := range map[string]uint64{
		"0":          0,
		"1":          100000000,
		"1.5":        150000000,
		"0.00000001": 1,
		"123.456":    12345600000,
	} {
		out, err := ToSmallestUnit(decimal.RequireFromString(in))
		require.Nil(t, err, in)
		require.Equal(t, expected, out, in)
	}
}

func TestToSmallestUnitPrecision(t *testing.T) {
	_, err := ToSmallestUnit(decimal.RequireFromString("0.000000001"))
	require.ErrorIs(t, err, errs.ErrPrecision)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestToSmallestUnitRange(t *testing.T) {
	_, err := ToSmallestUnit(decimal.RequireFromString("-0.1"))
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = ToSmallestUnit(decimal.RequireFromString("184467440737.09551616"))
	require.ErrorIs(t, err, errs.ErrValidation)

	out, err := ToSmallestUnit(decimal.RequireFromString("184467440737.09551615"))
	require.Nil(t, err)
	require.Equal(t, uint64(math.MaxUint64), out)
}

func TestRoundTrip(t *testing.T) {
	for _, octas := range []uint64{0, 1, 99, 100000000, 150000000, math.MaxUint64} {
		back, err := ToSmallestUnit(FromSmallestUnit(octas))
		require.Nil(t, err)
		require.Equal(t, octas, back)
	}
	require.Equal(t, "1.5", FromSmallestUnit(150000000).String())
}

func TestParseAmount(t *testing.T) {
	out, err := ParseAmount(" 2.25 ")
	require.Nil(t, err)
	require.True(t, out.Equal(decimal.RequireFromString("2.25")))

	_, err = ParseAmount("two")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestSetPrice(t *testing.T) {
	p, err := SetPrice(7, decimal.RequireFromString("1.5"), decimal.RequireFromString("0.001"))
	require.Nil(t, err)
	require.Nil(t, p.Validate())
	require.Equal(t, []interface{}{"7", "150000000", "100000"}, p.Arguments())
	require.Equal(t, payload.FunctionSetPrice, p.Function)

	_, err = SetPrice(7, decimal.RequireFromString("-1"), decimal.Zero)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = SetPrice(7, decimal.Zero, decimal.RequireFromString("0.000000001"))
	require.ErrorIs(t, err, errs.ErrPrecision)
}

func TestValidateRoyalty(t *testing.T) {
	normalized, err := ValidateRoyalty([]string{contributorA, "0xBB"}, 100)
	require.Nil(t, err)
	require.Equal(t, []string{contributorA, contributorB}, normalized)

	_, err = ValidateRoyalty([]string{contributorA}, 0)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = ValidateRoyalty([]string{contributorA}, 101)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = ValidateRoyalty([]string{}, 10)
	require.ErrorIs(t, err, errs.ErrValidation)

	// Same address in a different form
	_, err = ValidateRoyalty([]string{contributorA, "0xaa"}, 10)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = ValidateRoyalty([]string{"0xzz"}, 10)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestValidateSplits(t *testing.T) {
	contributors := []string{contributorA, contributorB}

	require.Nil(t, ValidateSplits(contributors, nil))
	require.Nil(t, ValidateSplits(contributors, []uint64{2500, 7500}))

	require.ErrorIs(t, ValidateSplits(contributors, []uint64{10000}), errs.ErrValidation)
	require.ErrorIs(t, ValidateSplits(contributors, []uint64{5000, 4999}), errs.ErrValidation)
	require.ErrorIs(t, ValidateSplits(contributors, []uint64{0, 10000}), errs.ErrValidation)
	require.ErrorIs(t, ValidateSplits(contributors, []uint64{math.MaxUint64, 2}), errs.ErrValidation)
}
