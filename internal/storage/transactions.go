package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"welth/internal/core"
)

// TransactionFilter narrows ListTransactions by field equality. Zero-valued
// fields are ignored.
type TransactionFilter struct {
	AccountID   string
	Type        core.TransactionType
	Category    string
	IsRecurring *bool
}

// BalanceAdjustment is one commutative balance increment to apply to an
// account inside the same atomic unit as a row mutation.
type BalanceAdjustment struct {
	AccountID string
	Delta     decimal.Decimal
}

// InsertTransaction inserts a transaction row and applies its balance delta
// to the owning account as one atomic unit. The account must exist and be
// owned by the transaction's user, verified inside the transaction.
func (r *Repository) InsertTransaction(ctx context.Context, t core.Transaction, delta decimal.Decimal) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertTransactionRow(ctx, tx, t); err != nil {
			return err
		}
		return r.adjustBalance(ctx, tx, t.UserID, t.AccountID, delta)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", t.ID,
		"account_id", t.AccountID,
		"type", string(t.Type),
		"amount", t.Amount.String())
	return nil
}

// InsertOccurrence writes a recurring occurrence, applies its balance delta
// and advances the template, all in one atomic unit. A failure at any step
// leaves the template still due, so the next run retries instead of leaving a
// committed occurrence behind a template that would materialize it again.
func (r *Repository) InsertOccurrence(ctx context.Context, occurrence core.Transaction, delta decimal.Decimal, templateID string, next core.Date, processedAt time.Time) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertTransactionRow(ctx, tx, occurrence); err != nil {
			return err
		}
		if err := r.adjustBalance(ctx, tx, occurrence.UserID, occurrence.AccountID, delta); err != nil {
			return err
		}
		return advanceRecurring(ctx, tx, templateID, next, processedAt)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Occurrence saved",
		"transaction_id", templateID,
		"occurrence_id", occurrence.ID,
		"account_id", occurrence.AccountID,
		"amount", occurrence.Amount.String())
	return nil
}

func insertTransactionRow(ctx context.Context, db execer, t core.Transaction) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, user_id, account_id, type, amount, date, description, category,
		  is_recurring, recurring_interval, next_recurring_date, last_processed_date,
		  created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, string(t.Type), t.Amount.String(), formatDate(t.Date),
		t.Description, t.Category, boolToInt(t.IsRecurring),
		nullString(string(t.RecurringInterval)), nullDate(t.NextRecurringDate), nullDate(t.LastProcessedDate),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: insert transaction: %v", core.ErrStore, err)
	}
	return nil
}

// UpdateTransaction replaces a transaction's mutable fields and applies the
// given balance adjustments, all in one atomic unit. The original row must
// exist and be owned by the transaction's user.
func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction, adjustments []BalanceAdjustment) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET
			   account_id = ?, type = ?, amount = ?, date = ?, description = ?, category = ?,
			   is_recurring = ?, recurring_interval = ?, next_recurring_date = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			t.AccountID, string(t.Type), t.Amount.String(), formatDate(t.Date), t.Description, t.Category,
			boolToInt(t.IsRecurring), nullString(string(t.RecurringInterval)), nullDate(t.NextRecurringDate),
			formatTime(t.UpdatedAt),
			t.ID, t.UserID,
		)
		if err != nil {
			return fmt.Errorf("%w: update transaction: %v", core.ErrStore, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: transaction %s", core.ErrNotFound, t.ID)
		}

		for _, adj := range adjustments {
			if err := r.adjustBalance(ctx, tx, t.UserID, adj.AccountID, adj.Delta); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteTransactions removes the given transactions and reverses their
// balance contributions, aggregated into one write per touched account.
// Ownership of every id is re-verified inside the transaction; a single
// foreign or missing id aborts the whole batch. Returns the ids of the
// accounts whose balances changed.
func (r *Repository) DeleteTransactions(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	// A repeated id must reverse its delta exactly once, while the row is
	// deleted once regardless.
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var order []string
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		reversals := make(map[string]decimal.Decimal)
		order = order[:0]

		for _, id := range unique {
			var (
				accountID string
				typ       string
				amount    string
			)
			err := tx.QueryRowContext(ctx,
				`SELECT account_id, type, amount FROM transactions WHERE id = ? AND user_id = ?`,
				id, userID,
			).Scan(&accountID, &typ, &amount)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: transaction %s", core.ErrNotFound, id)
			}
			if err != nil {
				return fmt.Errorf("%w: select transaction: %v", core.ErrStore, err)
			}

			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("%w: corrupt amount %q on transaction %s: %v", core.ErrStore, amount, id, err)
			}
			delta := core.BalanceDelta(core.TransactionType(typ), amt)

			if _, seen := reversals[accountID]; !seen {
				order = append(order, accountID)
			}
			reversals[accountID] = reversals[accountID].Sub(delta)
		}

		for _, id := range unique {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID,
			); err != nil {
				return fmt.Errorf("%w: delete transaction: %v", core.ErrStore, err)
			}
		}

		for _, accountID := range order {
			if err := r.adjustBalance(ctx, tx, userID, accountID, reversals[accountID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transactions deleted", "user_id", userID, "count", len(unique))
	return order, nil
}

// GetTransaction returns a transaction owned by the user, or core.ErrNotFound.
func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		selectTransaction+` WHERE id = ? AND user_id = ?`, id, userID,
	)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s", core.ErrNotFound, id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: select transaction: %v", core.ErrStore, err)
	}
	return t, nil
}

// ListTransactions returns the user's transactions matching the filter,
// newest date first.
func (r *Repository) ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]core.Transaction, error) {
	query := selectTransaction + ` WHERE user_id = ?`
	args := []any{userID}

	if f.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID)
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.IsRecurring != nil {
		query += ` AND is_recurring = ?`
		args = append(args, boolToInt(*f.IsRecurring))
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions: %v", core.ErrStore, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", core.ErrStore, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list transactions: %v", core.ErrStore, err)
	}
	return out, nil
}

// ListDueRecurring returns recurring transactions whose next occurrence is
// at or before asOf.
func (r *Repository) ListDueRecurring(ctx context.Context, asOf time.Time, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE is_recurring = 1 AND next_recurring_date IS NOT NULL AND next_recurring_date <= ?
		 ORDER BY next_recurring_date ASC LIMIT ?`,
		formatDate(core.Date{Time: asOf}), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list due recurring: %v", core.ErrStore, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", core.ErrStore, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list due recurring: %v", core.ErrStore, err)
	}
	return out, nil
}

// AdvanceRecurring moves a recurring template forward: stamps the processed
// date and stores the next occurrence.
func (r *Repository) AdvanceRecurring(ctx context.Context, id string, next core.Date, processedAt time.Time) error {
	return advanceRecurring(ctx, r.db, id, next, processedAt)
}

func advanceRecurring(ctx context.Context, db execer, id string, next core.Date, processedAt time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE transactions SET next_recurring_date = ?, last_processed_date = ?, updated_at = ?
		 WHERE id = ? AND is_recurring = 1`,
		formatDate(next), formatDate(core.Date{Time: processedAt}), formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("%w: advance recurring: %v", core.ErrStore, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: recurring transaction %s", core.ErrNotFound, id)
	}
	return nil
}

// adjustBalance applies one signed increment to an account balance. The
// read-then-write is safe because every caller holds the writer lock for the
// whole transaction.
func (r *Repository) adjustBalance(ctx context.Context, tx *sql.Tx, userID, accountID string, delta decimal.Decimal) error {
	var balance string
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = ? AND user_id = ?`, accountID, userID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: account %s", core.ErrNotFound, accountID)
	}
	if err != nil {
		return fmt.Errorf("%w: select balance: %v", core.ErrStore, err)
	}

	current, err := decimal.NewFromString(balance)
	if err != nil {
		return fmt.Errorf("%w: corrupt balance %q on account %s: %v", core.ErrStore, balance, accountID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ? AND user_id = ?`,
		current.Add(delta).String(), accountID, userID,
	); err != nil {
		return fmt.Errorf("%w: update balance: %v", core.ErrStore, err)
	}
	return nil
}

const selectTransaction = `SELECT id, user_id, account_id, type, amount, date, description, category,
	is_recurring, recurring_interval, next_recurring_date, last_processed_date, created_at, updated_at
	FROM transactions`

func scanTransaction(row scannable) (core.Transaction, error) {
	var (
		t           core.Transaction
		typ         string
		amount      string
		date        string
		isRecurring int
		interval    sql.NullString
		nextDate    sql.NullString
		lastDate    sql.NullString
		createdAt   string
		updatedAt   string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &typ, &amount, &date, &t.Description, &t.Category,
		&isRecurring, &interval, &nextDate, &lastDate, &createdAt, &updatedAt)
	if err != nil {
		return core.Transaction{}, err
	}

	t.Type = core.TransactionType(typ)
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	t.Date = core.Date{Time: parseTime(date)}
	t.IsRecurring = isRecurring != 0
	if interval.Valid {
		t.RecurringInterval = core.RecurringInterval(interval.String)
	}
	if nextDate.Valid {
		t.NextRecurringDate = core.Date{Time: parseTime(nextDate.String)}
	}
	if lastDate.Valid {
		t.LastProcessedDate = core.Date{Time: parseTime(lastDate.String)}
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return formatDate(d)
}

// formatDate uses plain RFC3339: fixed width at UTC, so lexicographic order
// in SQL matches chronological order.
func formatDate(d core.Date) string {
	return d.UTC().Format(time.RFC3339)
}
