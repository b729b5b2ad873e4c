package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"welth/internal/core"
	"welth/internal/gate"
	"welth/internal/storage"
)

// BudgetService tracks the monthly spending ceiling. A user has at most one
// budget; spending is measured against the default account's expenses in the
// current calendar month.
type BudgetService struct {
	store *storage.Repository
	auth  gate.Authorizer

	// now is swappable in tests.
	now func() time.Time
}

func NewBudgetService(store *storage.Repository, auth gate.Authorizer) *BudgetService {
	return &BudgetService{
		store: store,
		auth:  auth,
		now:   time.Now,
	}
}

// BudgetStatus is a budget together with the month's spending against it.
type BudgetStatus struct {
	Budget    core.Budget
	Spent     decimal.Decimal
	Remaining decimal.Decimal
}

// SetBudget creates or replaces the user's budget.
func (s *BudgetService) SetBudget(ctx context.Context, userID string, amount decimal.Decimal) (core.Budget, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return core.Budget{}, err
	}

	b := core.Budget{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		CreatedAt: s.now().UTC(),
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	return s.store.UpsertBudget(ctx, b)
}

// BudgetStatus returns the budget and how much of it the default account has
// consumed this month. Returns core.ErrNotFound when no budget is set.
func (s *BudgetService) BudgetStatus(ctx context.Context, userID string) (BudgetStatus, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return BudgetStatus{}, err
	}

	budget, err := s.store.GetBudget(ctx, userID)
	if err != nil {
		return BudgetStatus{}, err
	}

	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return BudgetStatus{}, err
	}
	var defaultAccountID string
	for _, a := range accounts {
		if a.IsDefault {
			defaultAccountID = a.ID
			break
		}
	}
	if defaultAccountID == "" {
		return BudgetStatus{}, fmt.Errorf("%w: no default account", core.ErrNotFound)
	}

	now := s.now().UTC()
	spent, err := s.store.MonthExpenseTotal(ctx, userID, defaultAccountID, now.Year(), now.Month())
	if err != nil {
		return BudgetStatus{}, err
	}

	return BudgetStatus{
		Budget:    budget,
		Spent:     spent,
		Remaining: budget.Amount.Sub(spent),
	}, nil
}
