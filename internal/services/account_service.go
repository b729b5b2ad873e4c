package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"welth/internal/amqp"
	"welth/internal/core"
	"welth/internal/gate"
	"welth/internal/storage"
)

// AccountService manages the user's money containers. The single-default
// invariant (exactly one default account per user once any exist) is enforced
// by the store; this layer adds quota checks, validation and invalidation.
type AccountService struct {
	store      *storage.Repository
	auth       gate.Authorizer
	amqpClient *amqp.Client
}

func NewAccountService(store *storage.Repository, auth gate.Authorizer, amqpClient *amqp.Client) *AccountService {
	return &AccountService{
		store:      store,
		auth:       auth,
		amqpClient: amqpClient,
	}
}

// AccountDraft is an unvalidated account payload. Balance stays a string
// until parsed so malformed input surfaces as ErrInvalidInput with the
// offending text.
type AccountDraft struct {
	Name      string
	Type      core.AccountType
	Balance   string
	IsDefault bool
}

func (s *AccountService) CreateAccount(ctx context.Context, userID string, draft AccountDraft) (core.Account, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return core.Account{}, err
	}

	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return core.Account{}, fmt.Errorf("%w: account name is required", core.ErrInvalidInput)
	}
	switch draft.Type {
	case core.Current, core.Savings:
	default:
		return core.Account{}, fmt.Errorf("%w: unknown account type %q", core.ErrInvalidInput, string(draft.Type))
	}

	balance, err := core.ParseBalance(draft.Balance)
	if err != nil {
		return core.Account{}, err
	}

	a := core.Account{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Type:      draft.Type,
		Balance:   balance,
		IsDefault: draft.IsDefault,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, err
	}

	s.publishStaleViews(ctx, userID, created.ID)
	return created, nil
}

func (s *AccountService) GetAccount(ctx context.Context, userID, accountID string) (core.Account, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return core.Account{}, err
	}
	return s.store.GetAccount(ctx, userID, accountID)
}

func (s *AccountService) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return nil, err
	}
	return s.store.ListAccounts(ctx, userID)
}

// SetDefaultAccount atomically moves the default flag to the given account.
// No interleaving can observe zero or two defaults.
func (s *AccountService) SetDefaultAccount(ctx context.Context, userID, accountID string) error {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return err
	}
	if err := s.store.SetDefaultAccount(ctx, userID, accountID); err != nil {
		return err
	}
	s.publishStaleViews(ctx, userID)
	return nil
}

// DeleteAccount removes an empty account. Accounts still referenced by
// transactions are refused so the balance invariant cannot be orphaned.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, accountID string) error {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return err
	}
	if err := s.store.DeleteAccount(ctx, userID, accountID); err != nil {
		return err
	}
	s.publishStaleViews(ctx, userID, accountID)
	return nil
}

// AccountSummary returns the account together with its income and expense
// totals and transaction count.
func (s *AccountService) AccountSummary(ctx context.Context, userID, accountID string) (storage.AccountSummary, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return storage.AccountSummary{}, err
	}
	summaries, err := s.store.DashboardSummary(ctx, userID)
	if err != nil {
		return storage.AccountSummary{}, err
	}
	for _, sum := range summaries {
		if sum.Account.ID == accountID {
			return sum, nil
		}
	}
	return storage.AccountSummary{}, fmt.Errorf("%w: account %s", core.ErrNotFound, accountID)
}

// DashboardSummary returns one summary per account, default account first.
func (s *AccountService) DashboardSummary(ctx context.Context, userID string) ([]storage.AccountSummary, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return nil, err
	}
	return s.store.DashboardSummary(ctx, userID)
}

func (s *AccountService) publishStaleViews(ctx context.Context, userID string, accountIDs ...string) {
	if s.amqpClient == nil {
		return
	}
	msg := amqp.NewStaleViewMessage(userID, accountIDs...)
	if err := s.amqpClient.PublishStaleViews(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish stale view message",
			"user_id", userID, "error", err)
	}
}
