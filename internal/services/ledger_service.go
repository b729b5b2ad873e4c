package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"welth/internal/amqp"
	"welth/internal/core"
	"welth/internal/gate"
	"welth/internal/schedule"
	"welth/internal/storage"
)

// LedgerService orchestrates transaction mutations: quota check, validation,
// ownership check, balance delta computation, atomic persistence, and view
// invalidation. Every mutation keeps the invariant that an account balance
// equals the signed sum of its transactions.
type LedgerService struct {
	store      *storage.Repository
	auth       gate.Authorizer
	amqpClient *amqp.Client
}

func NewLedgerService(store *storage.Repository, auth gate.Authorizer, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		store:      store,
		auth:       auth,
		amqpClient: amqpClient,
	}
}

// CreateTransaction validates the draft, verifies account ownership and
// writes the row together with its balance delta.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, draft core.TransactionDraft) (core.Transaction, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return core.Transaction{}, err
	}
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.store.GetAccount(ctx, userID, draft.AccountID); err != nil {
		return core.Transaction{}, err
	}

	now := time.Now().UTC()
	t := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		AccountID:   draft.AccountID,
		Type:        draft.Type,
		Amount:      draft.Amount,
		Date:        draft.Date,
		Description: draft.Description,
		Category:    draft.Category,
		IsRecurring: draft.IsRecurring,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if draft.IsRecurring {
		next, err := schedule.NextOccurrence(draft.Date, draft.RecurringInterval)
		if err != nil {
			return core.Transaction{}, err
		}
		t.RecurringInterval = draft.RecurringInterval
		t.NextRecurringDate = next
	}

	delta := core.BalanceDelta(t.Type, t.Amount)
	if err := s.store.InsertTransaction(ctx, t, delta); err != nil {
		return core.Transaction{}, err
	}

	s.publishStaleViews(ctx, userID, t.AccountID)
	return t, nil
}

// GetTransaction returns one transaction owned by the user.
func (s *LedgerService) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return core.Transaction{}, err
	}
	return s.store.GetTransaction(ctx, userID, id)
}

// ListTransactions returns the user's transactions matching the filter.
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, f storage.TransactionFilter) ([]core.Transaction, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, userID, f)
}

// UpdateTransaction replaces a transaction with the draft and reconciles the
// affected balances. Same account: one net adjustment of newDelta - oldDelta.
// Moved account: reverse the old delta on the original account and apply the
// new delta on the destination, both in the same atomic unit as the row.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id string, draft core.TransactionDraft) (core.Transaction, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return core.Transaction{}, err
	}
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}

	original, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if draft.AccountID != original.AccountID {
		if _, err := s.store.GetAccount(ctx, userID, draft.AccountID); err != nil {
			return core.Transaction{}, err
		}
	}

	updated := original
	updated.AccountID = draft.AccountID
	updated.Type = draft.Type
	updated.Amount = draft.Amount
	updated.Date = draft.Date
	updated.Description = draft.Description
	updated.Category = draft.Category
	updated.IsRecurring = draft.IsRecurring
	updated.RecurringInterval = ""
	updated.NextRecurringDate = core.Date{}
	updated.UpdatedAt = time.Now().UTC()
	if draft.IsRecurring {
		next, err := schedule.NextOccurrence(draft.Date, draft.RecurringInterval)
		if err != nil {
			return core.Transaction{}, err
		}
		updated.RecurringInterval = draft.RecurringInterval
		updated.NextRecurringDate = next
	}

	oldDelta := core.BalanceDelta(original.Type, original.Amount)
	newDelta := core.BalanceDelta(updated.Type, updated.Amount)

	var adjustments []storage.BalanceAdjustment
	if updated.AccountID != original.AccountID {
		adjustments = []storage.BalanceAdjustment{
			{AccountID: original.AccountID, Delta: oldDelta.Neg()},
			{AccountID: updated.AccountID, Delta: newDelta},
		}
	} else if net := newDelta.Sub(oldDelta); !net.IsZero() {
		adjustments = []storage.BalanceAdjustment{
			{AccountID: updated.AccountID, Delta: net},
		}
	}

	if err := s.store.UpdateTransaction(ctx, updated, adjustments); err != nil {
		return core.Transaction{}, err
	}

	if updated.AccountID != original.AccountID {
		s.publishStaleViews(ctx, userID, original.AccountID, updated.AccountID)
	} else {
		s.publishStaleViews(ctx, userID, updated.AccountID)
	}
	return updated, nil
}

// DeleteTransaction removes one transaction and reverses its balance
// contribution.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	return s.BulkDeleteTransactions(ctx, userID, []string{id})
}

// BulkDeleteTransactions removes a batch of transactions atomically. A single
// unowned or missing id fails the whole batch and nothing is written.
func (s *LedgerService) BulkDeleteTransactions(ctx context.Context, userID string, ids []string) error {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	touched, err := s.store.DeleteTransactions(ctx, userID, ids)
	if err != nil {
		return err
	}

	s.publishStaleViews(ctx, userID, touched...)
	return nil
}

func (s *LedgerService) publishStaleViews(ctx context.Context, userID string, accountIDs ...string) {
	if s.amqpClient == nil {
		return
	}
	msg := amqp.NewStaleViewMessage(userID, accountIDs...)
	if err := s.amqpClient.PublishStaleViews(ctx, msg); err != nil {
		// Mutation already committed; a lost invalidation only delays
		// cache refresh.
		slog.ErrorContext(ctx, "Failed to publish stale view message",
			"user_id", userID, "error", err)
	}
}
