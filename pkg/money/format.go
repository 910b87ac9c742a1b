// Package money formats decimal amounts for documents and exports.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders d with two decimals and comma thousand separators,
// prefixed by symbol when given.
func Format(d decimal.Decimal, symbol string) string {
	s := d.StringFixed(2)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String() + "." + frac
	if symbol != "" {
		out = symbol + " " + out
	}
	if negative {
		out = "-" + out
	}
	return out
}

// Plain renders d with two decimals and no grouping, for machine-readable
// exports.
func Plain(d decimal.Decimal) string {
	return d.StringFixed(2)
}
