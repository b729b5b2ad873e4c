package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"welth/internal/core"
)

func TestSetBudgetAndStatus(t *testing.T) {
	svc, store, u, a := newLedgerFixture(t)
	budgets := NewBudgetService(store, allowAll{})
	budgets.now = func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) }

	if _, err := budgets.SetBudget(context.Background(), u.ID, decimal.RequireFromString("500")); err != nil {
		t.Fatalf("set budget: %v", err)
	}

	// Two expenses this month on the default account, one income that must
	// not count, one expense in another month.
	for _, amount := range []string{"120", "30"} {
		if _, err := svc.CreateTransaction(context.Background(), u.ID, expenseDraft(a.ID, amount)); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}
	income := core.TransactionDraft{
		AccountID: a.ID,
		Type:      core.Income,
		Amount:    decimal.RequireFromString("1000"),
		Date:      core.NewDate(2026, 8, 5),
		Category:  "salary",
	}
	if _, err := svc.CreateTransaction(context.Background(), u.ID, income); err != nil {
		t.Fatalf("create income: %v", err)
	}
	lastMonth := expenseDraft(a.ID, "999")
	lastMonth.Date = core.NewDate(2026, 7, 15)
	if _, err := svc.CreateTransaction(context.Background(), u.ID, lastMonth); err != nil {
		t.Fatalf("create old expense: %v", err)
	}

	status, err := budgets.BudgetStatus(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("budget status: %v", err)
	}
	if !status.Spent.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("spent = %s, want 150", status.Spent)
	}
	if !status.Remaining.Equal(decimal.RequireFromString("350")) {
		t.Fatalf("remaining = %s, want 350", status.Remaining)
	}
}

func TestSetBudgetReplacesExisting(t *testing.T) {
	_, store, u, _ := newLedgerFixture(t)
	budgets := NewBudgetService(store, allowAll{})

	if _, err := budgets.SetBudget(context.Background(), u.ID, decimal.RequireFromString("500")); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	if _, err := budgets.SetBudget(context.Background(), u.ID, decimal.RequireFromString("800")); err != nil {
		t.Fatalf("replace budget: %v", err)
	}

	b, err := store.GetBudget(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if !b.Amount.Equal(decimal.RequireFromString("800")) {
		t.Fatalf("amount = %s, want 800", b.Amount)
	}
}

func TestSetBudgetRejectsNonPositive(t *testing.T) {
	_, store, u, _ := newLedgerFixture(t)
	budgets := NewBudgetService(store, allowAll{})

	_, err := budgets.SetBudget(context.Background(), u.ID, decimal.Zero)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBudgetStatusWithoutBudget(t *testing.T) {
	_, store, u, _ := newLedgerFixture(t)
	budgets := NewBudgetService(store, allowAll{})

	_, err := budgets.BudgetStatus(context.Background(), u.ID)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
