// Package core provides amount parsing utilities.
//
// This file contains the string entry point used by presentation layers
// to turn user input into a validated decimal amount.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a positive decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Empty, non-numeric, zero and negative input is rejected with a
// ValidationError wrapping ErrInvalidAmount. NaN and infinities never
// parse because decimal only accepts finite literals.
//
// Examples:
//
//	ParseAmount("12.50") -> 12.5, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("0")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
