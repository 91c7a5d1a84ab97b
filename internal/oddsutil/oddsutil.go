// Package oddsutil converts the engine's integer×100 odds representation
// to and from human-readable decimal odds (e.g. 215 <-> 2.15). No other
// package imports it: event payloads and dashboard JSON carry the integer
// form. This is the one place shopspring/decimal is exercised — the engine itself never needs decimal arithmetic, since odds
// comparisons and arithmetic are exact integer operations.
package oddsutil

import (
	"github.com/shopspring/decimal"

	"github.com/openalpha/betexchange/pkg/types"
)

// scale is the fixed-point factor the engine's Odds type is expressed in.
const scale = 100

// ToDecimal converts an integer×100 Odds into its decimal representation
// (215 -> 2.15).
func ToDecimal(o types.Odds) decimal.Decimal {
	return decimal.NewFromInt(int64(o)).Div(decimal.NewFromInt(scale))
}

// FromDecimal converts a decimal odds value back into the integer×100
// representation, rounding to the nearest integer.
func FromDecimal(d decimal.Decimal) types.Odds {
	scaled := d.Mul(decimal.NewFromInt(scale)).Round(0)
	return types.Odds(scaled.IntPart())
}

// FormatString renders odds as a two-decimal-place string, e.g. "2.15".
func FormatString(o types.Odds) string {
	return ToDecimal(o).StringFixed(2)
}
