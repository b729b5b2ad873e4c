package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"welth/internal/core"
	"welth/internal/storage"
)

func TestProcessDueCreatesOccurrenceAndAdvances(t *testing.T) {
	svc, store, u, a := newLedgerFixture(t)
	processor := NewRecurringProcessor(store, nil)

	draft := core.TransactionDraft{
		AccountID:         a.ID,
		Type:              core.Expense,
		Amount:            decimal.RequireFromString("15"),
		Date:              core.NewDate(2026, 8, 1),
		Description:       "Gym",
		Category:          "personal",
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
	}
	template, err := svc.CreateTransaction(context.Background(), u.ID, draft)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	mustBalance(t, store, u.ID, a.ID, "85")

	// Template is due on Sep 1; run the processor a day later.
	now := time.Date(2026, 9, 2, 6, 0, 0, 0, time.UTC)
	processed, err := processor.ProcessDue(context.Background(), now)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	mustBalance(t, store, u.ID, a.ID, "70")

	// The occurrence is a plain transaction carrying the template fields.
	all, err := store.ListTransactions(context.Background(), u.ID, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var occurrence *core.Transaction
	for i := range all {
		if all[i].ID != template.ID {
			occurrence = &all[i]
		}
	}
	if occurrence == nil {
		t.Fatalf("occurrence not found, got %d transactions", len(all))
	}
	if occurrence.IsRecurring {
		t.Fatalf("occurrence must not itself recur")
	}
	if occurrence.Description != "Gym (Recurring)" {
		t.Fatalf("description = %q", occurrence.Description)
	}
	if !occurrence.Amount.Equal(template.Amount) {
		t.Fatalf("amount = %s, want %s", occurrence.Amount, template.Amount)
	}

	// Template advanced: processed today, next occurrence a month out.
	advanced, err := store.GetTransaction(context.Background(), u.ID, template.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if advanced.LastProcessedDate.IsZero() {
		t.Fatalf("last processed date not stamped")
	}
	wantNext := core.NewDate(2026, 10, 2)
	if !advanced.NextRecurringDate.Equal(wantNext.Time) {
		t.Fatalf("next = %v, want %v", advanced.NextRecurringDate, wantNext)
	}
}

func TestProcessDueSkipsNotYetDue(t *testing.T) {
	svc, store, u, a := newLedgerFixture(t)
	processor := NewRecurringProcessor(store, nil)

	draft := core.TransactionDraft{
		AccountID:         a.ID,
		Type:              core.Expense,
		Amount:            decimal.RequireFromString("15"),
		Date:              core.NewDate(2026, 8, 1),
		Category:          "personal",
		IsRecurring:       true,
		RecurringInterval: core.Yearly,
	}
	if _, err := svc.CreateTransaction(context.Background(), u.ID, draft); err != nil {
		t.Fatalf("create template: %v", err)
	}

	processed, err := processor.ProcessDue(context.Background(), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if processed != 0 {
		t.Fatalf("processed = %d, want 0", processed)
	}
	mustBalance(t, store, u.ID, a.ID, "85")
}

func TestProcessDueIsIdempotentAcrossRuns(t *testing.T) {
	svc, store, u, a := newLedgerFixture(t)
	processor := NewRecurringProcessor(store, nil)

	draft := core.TransactionDraft{
		AccountID:         a.ID,
		Type:              core.Income,
		Amount:            decimal.RequireFromString("100"),
		Date:              core.NewDate(2026, 8, 1),
		Category:          "salary",
		IsRecurring:       true,
		RecurringInterval: core.Daily,
	}
	if _, err := svc.CreateTransaction(context.Background(), u.ID, draft); err != nil {
		t.Fatalf("create template: %v", err)
	}

	now := time.Date(2026, 8, 2, 8, 0, 0, 0, time.UTC)
	if n, err := processor.ProcessDue(context.Background(), now); err != nil || n != 1 {
		t.Fatalf("first run: n=%d err=%v", n, err)
	}
	// Same instant again: the template has been advanced past now.
	if n, err := processor.ProcessDue(context.Background(), now); err != nil || n != 0 {
		t.Fatalf("second run: n=%d err=%v", n, err)
	}
	mustBalance(t, store, u.ID, a.ID, "300")
}
