// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"
	"math/big"

	"github.com/iwvelando/taxsim/pkg/constants"
	"github.com/shopspring/decimal"
)

// mantissaBits is the significand width of a float64, hidden bit included.
const mantissaBits = 53

// Round rounds a value to two decimals, i.e. to represent real currency.
// The exact binary value is rounded, so 1.005 (stored as 1.00499...) becomes
// 1.00 while 0.125 becomes 0.13.
func Round(val float64) float64 {
	return RoundDecimal(val).InexactFloat64()
}

// RoundDecimal returns val rounded to the display precision as a decimal.
func RoundDecimal(val float64) decimal.Decimal {
	return Exact(val).Round(constants.DisplayPlaces)
}

// FixedString renders val with exactly two decimals, e.g. "10540.00".
func FixedString(val float64) string {
	return Exact(val).StringFixed(constants.DisplayPlaces)
}

// DisplayString renders val with exactly two decimals, rounding the shortest
// decimal form of val half away from zero, so 1.005 becomes "1.01".
func DisplayString(val float64) string {
	if !IsFinite(val) {
		return decimal.Zero.StringFixed(constants.DisplayPlaces)
	}
	return decimal.NewFromFloat(val).StringFixed(constants.DisplayPlaces)
}

// Exact returns the decimal expansion of the binary value of val with no
// rounding. Non-finite values map to zero.
func Exact(val float64) decimal.Decimal {
	if !IsFinite(val) || val == 0 {
		return decimal.Zero
	}
	frac, exp := math.Frexp(val)
	mant := big.NewInt(int64(math.Ldexp(frac, mantissaBits)))
	shift := exp - mantissaBits
	if shift >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(shift)), 0)
	}
	// m * 2^-k == m * 5^k / 10^k
	k := int64(-shift)
	mant.Mul(mant, new(big.Int).Exp(big.NewInt(5), big.NewInt(k), nil))
	return decimal.NewFromBigInt(mant, int32(-k))
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsInf(val, 0) && !math.IsNaN(val)
}

// IsZero checks if a value is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.CurrencyTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// PercentToDecimal converts a 0-100 percentage into a 0-1 fraction.
func PercentToDecimal(percentage float64) float64 {
	return percentage / constants.PercentageMultiplier
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}
