package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"welth/internal/core"
	"welth/internal/storage"
)

// allowAll satisfies gate.Authorizer and never denies.
type allowAll struct{}

func (allowAll) Authorize(context.Context, string, int) error { return nil }

// denyAll simulates an exhausted quota.
type denyAll struct{}

func (denyAll) Authorize(context.Context, string, int) error { return core.ErrRateLimited }

func newTestStore(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "welth.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newLedgerFixture(t *testing.T) (*LedgerService, *storage.Repository, core.User, core.Account) {
	t.Helper()
	store := newTestStore(t)
	svc := NewLedgerService(store, allowAll{}, nil)

	u, err := store.UpsertUser(context.Background(), "ext-1", "u@example.com", "U")
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	a, err := store.CreateAccount(context.Background(), core.Account{
		ID:        "acc-1",
		UserID:    u.ID,
		Name:      "Main",
		Type:      core.Current,
		Balance:   decimal.RequireFromString("100"),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return svc, store, u, a
}

func mustBalance(t *testing.T, store *storage.Repository, userID, accountID, want string) {
	t.Helper()
	a, err := store.GetAccount(context.Background(), userID, accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !a.Balance.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("balance = %s, want %s", a.Balance, want)
	}
}

func expenseDraft(accountID, amount string) core.TransactionDraft {
	return core.TransactionDraft{
		AccountID: accountID,
		Type:      core.Expense,
		Amount:    decimal.RequireFromString(amount),
		Date:      core.NewDate(2026, 8, 15),
		Category:  "groceries",
	}
}

func TestCreateTransactionAdjustsBalance(t *testing.T) {
	svc, store, u, a := newLedgerFixture(t)

	created, err := svc.CreateTransaction(context.Background(), u.ID, expenseDraft(a.ID, "30"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	mustBalance(t, store, u.ID, a.ID, "70")
}

func TestCreateTransactionRecurringComputesNextDate(t *testing.T) {
	svc, _, u, a := newLedgerFixture(t)

	draft := core.TransactionDraft{
		AccountID:         a.ID,
		Type:              core.Income,
		Amount:            decimal.RequireFromString("2000"),
		Date:              core.NewDate(2026, 8, 1),
		Category:          "salary",
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
	}
	created, err := svc.CreateTransaction(context.Background(), u.ID, draft)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := core.NewDate(2026, 9, 1)
	if !created.NextRecurringDate.Equal(want.Time) {
		t.Fatalf("next = %v, want %v", created.NextRecurringDate, want)
	}
}

func TestCreateTransactionRejectsUnknownInterval(t *testing.T) {
	svc, store, u, a := newLedgerFixture(t)

	draft := expenseDraft(a.ID, "10")
	draft.IsRecurring = true
	draft.RecurringInterval = "HOURLY"

	_, err := svc.CreateTransaction(context.Background(), u.ID, draft)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	mustBalance(t, store, u.ID, a.ID, "100")
}

func TestCreateTransactionForeignAccount(t *testing.T) {
	svc, store, u, _ := newLedgerFixture(t)

	other, err := store.UpsertUser(context.Background(), "ext-2", "", "")
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	foreign, err := store.CreateAccount(context.Background(), core.Account{
		ID:        "acc-foreign",
		UserID:    other.ID,
		Name:      "Theirs",
		Type:      core.Current,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	_, err = svc.CreateTransaction(context.Background(), u.ID, expenseDraft(foreign.ID, "10"))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTransactionRateLimited(t *testing.T) {
	store := newTestStore(t)
	svc := NewLedgerService(store, denyAll{}, nil)

	_, err := svc.CreateTransaction(context.Background(), "u1", expenseDraft("acc", "10"))
	if !errors.Is(err, core.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestUpdateTransactionSameAccount(t *testing.T) {
	svc, store, u, a := newLedgerFixture(t)

	created, err := svc.CreateTransaction(context.Background(), u.ID, expenseDraft(a.ID, "30"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mustBalance(t, store, u.ID, a.ID, "70")

	// Flip the expense into an income of a different size. Old delta -30,
	// new delta +40: net +70 on top of 70.
	draft := core.TransactionDraft{
		AccountID: a.ID,
		Type:      core.Income,
		Amount:    decimal.RequireFromString("40"),
		Date:      created.Date,
		Category:  "other-income",
	}
	updated, err := svc.UpdateTransaction(context.Background(), u.ID, created.ID, draft)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Type != core.Income {
		t.Fatalf("type = %s", updated.Type)
	}
	mustBalance(t, store, u.ID, a.ID, "140")
}

func TestUpdateTransactionCrossAccountMove(t *testing.T) {
	svc, store, u, a := newLedgerFixture(t)

	b, err := store.CreateAccount(context.Background(), core.Account{
		ID:        "acc-2",
		UserID:    u.ID,
		Name:      "Savings",
		Type:      core.Savings,
		Balance:   decimal.RequireFromString("50"),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	created, err := svc.CreateTransaction(context.Background(), u.ID, expenseDraft(a.ID, "20"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mustBalance(t, store, u.ID, a.ID, "80")

	draft := expenseDraft(b.ID, "20")
	if _, err := svc.UpdateTransaction(context.Background(), u.ID, created.ID, draft); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Original account refunded, destination charged.
	mustBalance(t, store, u.ID, a.ID, "100")
	mustBalance(t, store, u.ID, b.ID, "30")
}

func TestUpdateTransactionStripsRecurrence(t *testing.T) {
	svc, store, u, a := newLedgerFixture(t)

	draft := expenseDraft(a.ID, "10")
	draft.IsRecurring = true
	draft.RecurringInterval = core.Weekly
	created, err := svc.CreateTransaction(context.Background(), u.ID, draft)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	plain := expenseDraft(a.ID, "10")
	if _, err := svc.UpdateTransaction(context.Background(), u.ID, created.ID, plain); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetTransaction(context.Background(), u.ID, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsRecurring || got.RecurringInterval != "" || !got.NextRecurringDate.IsZero() {
		t.Fatalf("recurrence not stripped: %+v", got)
	}
}

func TestBulkDeleteReversesAggregated(t *testing.T) {
	svc, store, u, a := newLedgerFixture(t)

	t1, err := svc.CreateTransaction(context.Background(), u.ID, expenseDraft(a.ID, "10"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	income := core.TransactionDraft{
		AccountID: a.ID,
		Type:      core.Income,
		Amount:    decimal.RequireFromString("5"),
		Date:      core.NewDate(2026, 8, 16),
		Category:  "other-income",
	}
	t2, err := svc.CreateTransaction(context.Background(), u.ID, income)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mustBalance(t, store, u.ID, a.ID, "95")

	if err := svc.BulkDeleteTransactions(context.Background(), u.ID, []string{t1.ID, t2.ID}); err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	mustBalance(t, store, u.ID, a.ID, "100")
}

func TestBulkDeleteFailsClosed(t *testing.T) {
	svc, store, u, a := newLedgerFixture(t)

	t1, err := svc.CreateTransaction(context.Background(), u.ID, expenseDraft(a.ID, "10"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.BulkDeleteTransactions(context.Background(), u.ID, []string{t1.ID, "no-such-id"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Nothing deleted, balance untouched.
	if _, err := store.GetTransaction(context.Background(), u.ID, t1.ID); err != nil {
		t.Fatalf("expected transaction untouched, got %v", err)
	}
	mustBalance(t, store, u.ID, a.ID, "90")
}
