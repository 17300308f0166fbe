// Package core provides money parsing and handling utilities.
//
// Amounts are kept as shopspring decimals so that totals and net flow add up
// exactly, with two fraction digits on output.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrAmountRange    = errors.New("amount out of range")
)

// Amounts are bounded before any rescaling so a short input like "1e2000000"
// cannot expand into a huge number.
const maxAmountExponent = 12

var maxAmount = decimal.New(1, maxAmountExponent)

// ParseAmount parses a decimal amount as found in the ledger's Amount column.
// Surrounding whitespace is ignored; the sign is preserved.
//
// Examples:
//
//	ParseAmount("15.00") -> 15, nil
//	ParseAmount(" 43 ")  -> 43, nil
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
//	ParseAmount("1e20")  -> 0, ErrAmountRange
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !amountInRange(d) {
		return decimal.Zero, ErrAmountRange
	}
	return d, nil
}

// amountInRange checks the exponent first; comparing against maxAmount
// rescales both operands.
func amountInRange(d decimal.Decimal) bool {
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return false
	}
	return !d.Abs().GreaterThan(maxAmount)
}

// ParseMagnitude parses an amount that is about to be written: it must be a
// number and must not be negative. The result is rounded to two digits.
func ParseMagnitude(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d.Round(2), nil
}

// FormatAmount renders an amount with exactly two fraction digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
