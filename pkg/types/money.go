package types

import "github.com/shopspring/decimal"

var centsPerUnit = decimal.NewFromInt(100)

// CentsToDecimal converts a stored cent amount into a two-place decimal.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// DecimalToCents rounds half away from zero to the nearest cent.
func DecimalToCents(amount decimal.Decimal) int64 {
	return amount.Mul(centsPerUnit).Round(0).IntPart()
}
