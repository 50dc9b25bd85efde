// Package money converts between UI decimal amounts and integer base units.
// Amounts are never represented as binary floats once they enter this package.
package money

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest on-chain precision we accept.
const MaxDecimals = 18

// ClampDecimals bounds decimals to [0, MaxDecimals].
func ClampDecimals(decimals int) int {
	if decimals < 0 {
		return 0
	}
	if decimals > MaxDecimals {
		return MaxDecimals
	}
	return decimals
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ToBaseUnits converts a UI amount to base units at the given precision.
// The amount is rounded to decimals fractional digits before being split into
// whole and fractional parts. Non-positive amounts yield "0".
func ToBaseUnits(amountUI decimal.Decimal, decimals int) string {
	d := ClampDecimals(decimals)
	if amountUI.Sign() <= 0 {
		return "0"
	}

	rounded := amountUI.Round(int32(d))
	whole := rounded.Truncate(0)
	fractional := rounded.Sub(whole).Shift(int32(d))

	result := new(big.Int).Mul(whole.BigInt(), pow10(d))
	result.Add(result, fractional.BigInt())
	return result.String()
}

// ToBaseUnitsFloat is ToBaseUnits for float inputs arriving from a JSON
// boundary. NaN, infinities and negative values yield "0".
func ToBaseUnitsFloat(amount float64, decimals int) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return "0"
	}
	return ToBaseUnits(decimal.NewFromFloat(amount), decimals)
}

// ParseBaseUnits parses an unsigned base-unit integer string. An empty string
// is zero.
func ParseBaseUnits(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid base units %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative base units %q", s)
	}
	return v, nil
}

// AddBaseUnits returns the exact sum of two unsigned base-unit strings.
func AddBaseUnits(a, b string) (string, error) {
	x, err := ParseBaseUnits(a)
	if err != nil {
		return "", err
	}
	y, err := ParseBaseUnits(b)
	if err != nil {
		return "", err
	}
	return x.Add(x, y).String(), nil
}

// IsPositive reports whether a base-unit string is a valid amount above zero.
func IsPositive(s string) bool {
	v, err := ParseBaseUnits(s)
	return err == nil && v.Sign() > 0
}

// FromBaseUnits converts base units back to a UI decimal for display.
func FromBaseUnits(base string, decimals int) (decimal.Decimal, error) {
	v, err := ParseBaseUnits(base)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(v, -int32(ClampDecimals(decimals))), nil
}
