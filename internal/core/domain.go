package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	Current AccountType = "CURRENT"
	Savings AccountType = "SAVINGS"
)

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

type (
	TransactionType   string
	AccountType       string
	RecurringInterval string

	Date struct {
		time.Time
	}

	// User is the identity anchor. Created on first successful
	// authentication, never mutated by the ledger engine.
	User struct {
		ID         string
		ExternalID string
		Email      string
		Name       string
		CreatedAt  time.Time
	}

	// Account is a named money container. Balance always equals the signed
	// sum of all transactions referencing it.
	Account struct {
		ID        string
		UserID    string
		Name      string
		Type      AccountType
		Balance   decimal.Decimal
		IsDefault bool
		CreatedAt time.Time
	}

	// Transaction is a single ledger entry. Amount is always positive;
	// the sign is implied by Type.
	Transaction struct {
		ID                string
		UserID            string
		AccountID         string
		Type              TransactionType
		Amount            decimal.Decimal
		Date              Date
		Description       string
		Category          string
		IsRecurring       bool
		RecurringInterval RecurringInterval
		NextRecurringDate Date
		LastProcessedDate Date
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	// Budget is the monthly spending ceiling for a user.
	Budget struct {
		ID        string
		UserID    string
		Amount    decimal.Decimal
		CreatedAt time.Time
	}

	// TransactionDraft is an unvalidated transaction payload awaiting
	// engine acceptance.
	TransactionDraft struct {
		AccountID         string
		Type              TransactionType
		Amount            decimal.Decimal
		Date              Date
		Description       string
		Category          string
		IsRecurring       bool
		RecurringInterval RecurringInterval
	}
)

// NewDate creates a new Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidInput)
	}
	return nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, string(t))
	}
}

func (i RecurringInterval) Validate() error {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return fmt.Errorf("%w: unknown recurring interval %q", ErrInvalidInput, string(i))
	}
}

func (d TransactionDraft) Validate() error {
	if strings.TrimSpace(d.AccountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	if err := d.Type.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(d.Amount); err != nil {
		return err
	}
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if len(d.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidInput)
	}
	if d.Category != "" && !KnownCategory(d.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, d.Category)
	}
	if d.IsRecurring {
		if err := d.RecurringInterval.Validate(); err != nil {
			return err
		}
	} else if d.RecurringInterval != "" {
		return fmt.Errorf("%w: recurring interval set on a non-recurring transaction", ErrInvalidInput)
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return ValidateAmount(b.Amount)
}
