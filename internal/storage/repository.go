package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"welth/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the SQLite-backed ledger store. All paired row+balance
// mutations run inside immediate transactions so the single writer lock is
// taken before any read, keeping balance read-then-write serialized.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// _txlock=immediate: every transaction takes the writer lock up front.
	dsn := dbPath + "?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// inTx runs fn inside a single store transaction. Any error rolls the whole
// unit back; a commit failure surfaces as core.ErrStore.
func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", core.ErrStore, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", core.ErrStore, err)
	}
	return nil
}

// UpsertUser resolves an external identity to a ledger user, creating the
// row on first sight. The user itself is never mutated afterwards.
func (r *Repository) UpsertUser(ctx context.Context, externalID, email, name string) (core.User, error) {
	var u core.User
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var createdAt string
		err := tx.QueryRowContext(ctx,
			`SELECT id, external_id, email, name, created_at FROM users WHERE external_id = ?`,
			externalID,
		).Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &createdAt)
		if err == nil {
			u.CreatedAt = parseTime(createdAt)
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: select user: %v", core.ErrStore, err)
		}

		u = core.User{
			ID:         uuid.NewString(),
			ExternalID: externalID,
			Email:      email,
			Name:       name,
			CreatedAt:  time.Now().UTC(),
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, external_id, email, name, created_at) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.ExternalID, u.Email, u.Name, formatTime(u.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("%w: insert user: %v", core.ErrStore, err)
		}
		slog.InfoContext(ctx, "User created", "user_id", u.ID, "external_id", externalID)
		return nil
	})
	if err != nil {
		return core.User{}, err
	}
	return u, nil
}

// CreateAccount inserts a new account. The first account of a user always
// becomes the default; an explicitly default account demotes the previous
// one inside the same transaction.
func (r *Repository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Type == "" {
		a.Type = core.Current
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM accounts WHERE user_id = ?`, a.UserID,
		).Scan(&count); err != nil {
			return fmt.Errorf("%w: count accounts: %v", core.ErrStore, err)
		}
		if count == 0 {
			a.IsDefault = true
		} else if a.IsDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE accounts SET is_default = 0 WHERE user_id = ?`, a.UserID,
			); err != nil {
				return fmt.Errorf("%w: clear default account: %v", core.ErrStore, err)
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, user_id, name, type, balance, is_default, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.UserID, a.Name, string(a.Type), a.Balance.String(), boolToInt(a.IsDefault), formatTime(a.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("%w: insert account: %v", core.ErrStore, err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}

	slog.InfoContext(ctx, "Account created",
		"account_id", a.ID,
		"user_id", a.UserID,
		"name", a.Name,
		"is_default", a.IsDefault)
	return a, nil
}

// GetAccount returns an account owned by the user, or core.ErrNotFound.
func (r *Repository) GetAccount(ctx context.Context, userID, accountID string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, balance, is_default, created_at
		 FROM accounts WHERE id = ? AND user_id = ?`,
		accountID, userID,
	)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("%w: account %s", core.ErrNotFound, accountID)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("%w: select account: %v", core.ErrStore, err)
	}
	return a, nil
}

// ListAccounts returns all accounts of a user, default first.
func (r *Repository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, balance, is_default, created_at
		 FROM accounts WHERE user_id = ? ORDER BY is_default DESC, created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list accounts: %v", core.ErrStore, err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan account: %v", core.ErrStore, err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list accounts: %v", core.ErrStore, err)
	}
	return accounts, nil
}

// SetDefaultAccount demotes the current default and promotes accountID in
// one transaction, keeping the one-default-per-user invariant.
func (r *Repository) SetDefaultAccount(ctx context.Context, userID, accountID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var owned int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM accounts WHERE id = ? AND user_id = ?`, accountID, userID,
		).Scan(&owned); err != nil {
			return fmt.Errorf("%w: select account: %v", core.ErrStore, err)
		}
		if owned == 0 {
			return fmt.Errorf("%w: account %s", core.ErrNotFound, accountID)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET is_default = 0 WHERE user_id = ?`, userID,
		); err != nil {
			return fmt.Errorf("%w: clear default account: %v", core.ErrStore, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET is_default = 1 WHERE id = ? AND user_id = ?`, accountID, userID,
		); err != nil {
			return fmt.Errorf("%w: set default account: %v", core.ErrStore, err)
		}
		return nil
	})
}

// DeleteAccount removes an account that no transaction references.
func (r *Repository) DeleteAccount(ctx context.Context, userID, accountID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var refs int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID,
		).Scan(&refs); err != nil {
			return fmt.Errorf("%w: count transactions: %v", core.ErrStore, err)
		}
		if refs > 0 {
			return fmt.Errorf("%w: account %s still has %d transactions", core.ErrInvalidInput, accountID, refs)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM accounts WHERE id = ? AND user_id = ?`, accountID, userID,
		)
		if err != nil {
			return fmt.Errorf("%w: delete account: %v", core.ErrStore, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: account %s", core.ErrNotFound, accountID)
		}
		return nil
	})
}

// UpsertBudget creates or replaces the user's single monthly budget.
func (r *Repository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	// On the conflict path the stored row keeps its original id and
	// created_at; RETURNING reports what was actually persisted.
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO budgets (id, user_id, amount, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET amount = excluded.amount
		 RETURNING id, created_at`,
		b.ID, b.UserID, b.Amount.String(), formatTime(b.CreatedAt),
	).Scan(&b.ID, &createdAt)
	if err != nil {
		return core.Budget{}, fmt.Errorf("%w: upsert budget: %v", core.ErrStore, err)
	}
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

// GetBudget returns the user's budget, or core.ErrNotFound when none is set.
func (r *Repository) GetBudget(ctx context.Context, userID string) (core.Budget, error) {
	var (
		b         core.Budget
		amount    string
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount, created_at FROM budgets WHERE user_id = ?`, userID,
	).Scan(&b.ID, &b.UserID, &amount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("%w: budget for user %s", core.ErrNotFound, userID)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("%w: select budget: %v", core.ErrStore, err)
	}
	b.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("%w: corrupt budget amount %q: %v", core.ErrStore, amount, err)
	}
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

type scannable interface {
	Scan(dest ...any) error
}

// execer is the write surface shared by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanAccount(row scannable) (core.Account, error) {
	var (
		a         core.Account
		typ       string
		balance   string
		isDefault int
		createdAt string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &typ, &balance, &isDefault, &createdAt); err != nil {
		return core.Account{}, err
	}
	var err error
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("corrupt balance %q: %w", balance, err)
	}
	a.Type = core.AccountType(typ)
	a.IsDefault = isDefault != 0
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
