package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"welth/internal/core"
)

// AccountSummary is the per-account aggregate backing the dashboard view.
type AccountSummary struct {
	Account          core.Account
	Income           decimal.Decimal
	Expense          decimal.Decimal
	TransactionCount int
}

// DashboardSummary aggregates every account of a user with its income and
// expense totals. Sums are computed in Go so decimal precision survives.
func (r *Repository) DashboardSummary(ctx context.Context, userID string) ([]AccountSummary, error) {
	accounts, err := r.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	byAccount := make(map[string]*AccountSummary, len(accounts))
	summaries := make([]AccountSummary, len(accounts))
	for i, a := range accounts {
		summaries[i] = AccountSummary{Account: a}
		byAccount[a.ID] = &summaries[i]
	}

	transactions, err := r.ListTransactions(ctx, userID, TransactionFilter{})
	if err != nil {
		return nil, err
	}
	for _, t := range transactions {
		s, ok := byAccount[t.AccountID]
		if !ok {
			continue
		}
		s.TransactionCount++
		if t.Type == core.Expense {
			s.Expense = s.Expense.Add(t.Amount)
		} else {
			s.Income = s.Income.Add(t.Amount)
		}
	}
	return summaries, nil
}

// MonthExpenseTotal sums the user's EXPENSE transactions on one account for
// a calendar month. An empty accountID covers all accounts.
func (r *Repository) MonthExpenseTotal(ctx context.Context, userID, accountID string, year int, month time.Month) (decimal.Decimal, error) {
	transactions, err := r.ListTransactions(ctx, userID, TransactionFilter{
		AccountID: accountID,
		Type:      core.Expense,
	})
	if err != nil {
		return decimal.Zero, err
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	total := decimal.Zero
	for _, t := range transactions {
		d := t.Date.UTC()
		if d.Before(start) || !d.Before(end) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}
