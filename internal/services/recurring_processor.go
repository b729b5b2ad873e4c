package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"welth/internal/amqp"
	"welth/internal/core"
	"welth/internal/schedule"
	"welth/internal/storage"
)

// RecurringProcessor materializes due recurring templates into concrete
// transactions. System-driven work: it bypasses the request gate and writes
// through the store directly, keeping the same atomic row-plus-balance unit
// as user mutations.
type RecurringProcessor struct {
	store      *storage.Repository
	amqpClient *amqp.Client
	batchSize  int
}

func NewRecurringProcessor(store *storage.Repository, amqpClient *amqp.Client) *RecurringProcessor {
	return &RecurringProcessor{
		store:      store,
		amqpClient: amqpClient,
		batchSize:  100,
	}
}

// SetBatchSize bounds how many due templates one run picks up.
func (p *RecurringProcessor) SetBatchSize(n int) {
	if n > 0 {
		p.batchSize = n
	}
}

// ProcessDue creates one occurrence for every recurring template whose next
// occurrence is at or before now, then advances the template. A failing
// template is logged and skipped; the rest of the batch proceeds. Returns the
// number of occurrences created.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	due, err := p.store.ListDueRecurring(ctx, now, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list due recurring: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"due", len(due),
		"as_of", now.Format("2006-01-02"))

	processed := 0
	for _, template := range due {
		if err := p.processOne(ctx, template, now); err != nil {
			slog.ErrorContext(ctx, "Failed to process recurring template",
				"transaction_id", template.ID,
				"error", err)
			continue
		}
		processed++
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"processed", processed,
		"due", len(due))
	return processed, nil
}

func (p *RecurringProcessor) processOne(ctx context.Context, template core.Transaction, now time.Time) error {
	// Occurrences are dated to the calendar day of the run, and the next
	// occurrence steps from that day, not from the wall-clock instant.
	today := core.NewDate(now.UTC().Year(), int(now.UTC().Month()), now.UTC().Day())
	next, err := schedule.NextOccurrence(today, template.RecurringInterval)
	if err != nil {
		return fmt.Errorf("next occurrence: %w", err)
	}

	occurrence := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      template.UserID,
		AccountID:   template.AccountID,
		Type:        template.Type,
		Amount:      template.Amount,
		Date:        today,
		Description: template.Description + " (Recurring)",
		Category:    template.Category,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}

	// One atomic unit: an occurrence must never commit while its template
	// stays due, or the next run would materialize it again.
	delta := core.BalanceDelta(occurrence.Type, occurrence.Amount)
	if err := p.store.InsertOccurrence(ctx, occurrence, delta, template.ID, next, now); err != nil {
		return fmt.Errorf("insert occurrence: %w", err)
	}

	if p.amqpClient != nil {
		msg := amqp.NewStaleViewMessage(template.UserID, template.AccountID)
		if err := p.amqpClient.PublishStaleViews(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish stale view message",
				"user_id", template.UserID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Created occurrence from recurring template",
		"transaction_id", template.ID,
		"occurrence_id", occurrence.ID,
		"amount", occurrence.Amount.String(),
		"interval", string(template.RecurringInterval))
	return nil
}
