package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is the commerce backend's amount representation: an integer count of
// minor currency units plus an ISO 4217 currency code.
type Money struct {
	Type           string `json:"type,omitempty"` // "centPrecision"
	CurrencyCode   string `json:"currencyCode"`
	CentAmount     int64  `json:"centAmount"`
	FractionDigits int    `json:"fractionDigits,omitempty"`
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	digits := m.FractionDigits
	if digits == 0 {
		digits = 2
	}
	return decimal.New(m.CentAmount, -int32(digits))
}

// CentsToDecimal converts an amount in minor units (cents) to major units.
// Examples: 1999 → 19.99, 0 → 0
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatCents renders minor units as a fixed two-decimal string.
// Examples: 1999 → "19.99", 500 → "5.00", 0 → "0.00"
func FormatCents(cents int64) string {
	return CentsToDecimal(cents).StringFixed(2)
}

// DecimalToCents converts a major-unit decimal to minor units, rounding half away from zero.
// Examples: 19.99 → 1999, 0.005 → 1
func DecimalToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// ParseCents converts decimal string amounts (dollars) to cents (int64).
// Used for client-supplied prices such as a product's basePrice ("99.00").
// Examples: "99.00" → 9900, "1234.56" → 123456, "" → 0, "abc" → 0
func ParseCents(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return DecimalToCents(d)
}
