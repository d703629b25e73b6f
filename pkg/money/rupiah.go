// Package money formats fine amounts for user-facing messages.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatRupiah renders an amount the way id-ID locales print currency:
// dot thousands separators and a comma before any fractional part.
func FormatRupiah(amount decimal.Decimal) string {
	neg := amount.IsNegative()
	amount = amount.Abs()

	whole := amount.Truncate(0)
	frac := amount.Sub(whole)

	digits := whole.String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := "Rp " + b.String()
	if !frac.IsZero() {
		cents := frac.Shift(2).Round(0).IntPart()
		out += "," + leftPad2(cents)
	}
	if neg {
		out = "-" + out
	}
	return out
}

func leftPad2(v int64) string {
	if v < 10 {
		return "0" + decimal.NewFromInt(v).String()
	}
	return decimal.NewFromInt(v).String()
}
