// Package wire implements the JSON representation of orders and invoices.
//
// Money is written as a JSON number with exactly two fraction digits, rounded
// half to even. Decoding keeps the raw number text so no precision is lost
// before pricing.
package wire

import (
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits written for money values.
const MoneyScale = 2

// FormatMoney renders d with MoneyScale fraction digits, rounding half to even.
func FormatMoney(d decimal.Decimal) string {
	return d.RoundBank(MoneyScale).StringFixed(MoneyScale)
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(FormatMoney(d)))
}
