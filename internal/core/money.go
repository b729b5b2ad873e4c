// Package core provides the ledger domain model.
//
// Money amounts are exact decimals throughout. They are parsed from strings,
// validated as positive, and combined only through decimal arithmetic; binary
// floating point never touches a balance.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to an exact amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns an error wrapping ErrInvalidInput for malformed, negative, or
// zero amounts.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ParseBalance converts a decimal string to an exact opening balance.
// Unlike amounts, balances may be zero or negative; an empty string means
// zero.
func ParseBalance(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed balance %q", ErrInvalidInput, s)
	}
	return d, nil
}

// ValidateAmount enforces the positive-amount rule shared by transactions
// and budgets.
func ValidateAmount(d decimal.Decimal) error {
	if d.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return nil
}

// BalanceDelta returns the signed contribution of a transaction to its
// account balance: income counts positive, expense negative.
func BalanceDelta(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == Expense {
		return amount.Neg()
	}
	return amount
}
