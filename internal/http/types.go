package http

import (
	"encoding/json"
	"fmt"
	"time"

	"welth/internal/core"
	"welth/internal/receipt"
	"welth/internal/storage"
)

// amountField accepts a decimal amount as either a JSON string or a JSON
// number, preserving the exact text for decimal parsing.
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a decimal string or number")
	}
	*a = amountField(n.String())
	return nil
}

const dateLayout = "2006-01-02"

// parseDate accepts a plain date or a full RFC 3339 timestamp.
func parseDate(s string) (core.Date, error) {
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return core.Date{Time: t.UTC()}, nil
		}
	}
	return core.Date{}, fmt.Errorf("%w: unparseable date %q", core.ErrInvalidInput, s)
}

type transactionRequest struct {
	AccountID         string      `json:"accountId"`
	Type              string      `json:"type"`
	Amount            amountField `json:"amount"`
	Date              string      `json:"date"`
	Description       string      `json:"description"`
	Category          string      `json:"category"`
	IsRecurring       bool        `json:"isRecurring"`
	RecurringInterval string      `json:"recurringInterval"`
}

func (req transactionRequest) toDraft() (core.TransactionDraft, error) {
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.TransactionDraft{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.TransactionDraft{}, err
	}
	return core.TransactionDraft{
		AccountID:         req.AccountID,
		Type:              core.TransactionType(req.Type),
		Amount:            amount,
		Date:              date,
		Description:       req.Description,
		Category:          req.Category,
		IsRecurring:       req.IsRecurring,
		RecurringInterval: core.RecurringInterval(req.RecurringInterval),
	}, nil
}

type transactionResponse struct {
	ID                string `json:"id"`
	AccountID         string `json:"accountId"`
	Type              string `json:"type"`
	Amount            string `json:"amount"`
	Date              string `json:"date"`
	Description       string `json:"description,omitempty"`
	Category          string `json:"category,omitempty"`
	IsRecurring       bool   `json:"isRecurring"`
	RecurringInterval string `json:"recurringInterval,omitempty"`
	NextRecurringDate string `json:"nextRecurringDate,omitempty"`
	LastProcessedDate string `json:"lastProcessedDate,omitempty"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:                t.ID,
		AccountID:         t.AccountID,
		Type:              string(t.Type),
		Amount:            t.Amount.String(),
		Date:              t.Date.UTC().Format(dateLayout),
		Description:       t.Description,
		Category:          t.Category,
		IsRecurring:       t.IsRecurring,
		RecurringInterval: string(t.RecurringInterval),
		CreatedAt:         t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !t.NextRecurringDate.IsZero() {
		resp.NextRecurringDate = t.NextRecurringDate.UTC().Format(dateLayout)
	}
	if !t.LastProcessedDate.IsZero() {
		resp.LastProcessedDate = t.LastProcessedDate.UTC().Format(dateLayout)
	}
	return resp
}

func toTransactionResponses(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

type accountRequest struct {
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Balance   amountField `json:"balance"`
	IsDefault bool        `json:"isDefault"`
}

type accountResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	IsDefault bool   `json:"isDefault"`
	CreatedAt string `json:"createdAt"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		Balance:   a.Balance.String(),
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type accountSummaryResponse struct {
	Account          accountResponse `json:"account"`
	Income           string          `json:"income"`
	Expense          string          `json:"expense"`
	TransactionCount int             `json:"transactionCount"`
}

func toAccountSummaryResponse(s storage.AccountSummary) accountSummaryResponse {
	return accountSummaryResponse{
		Account:          toAccountResponse(s.Account),
		Income:           s.Income.String(),
		Expense:          s.Expense.String(),
		TransactionCount: s.TransactionCount,
	}
}

type budgetRequest struct {
	Amount amountField `json:"amount"`
}

type budgetStatusResponse struct {
	Amount    string `json:"amount"`
	Spent     string `json:"spent"`
	Remaining string `json:"remaining"`
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// receiptDraftResponse keeps amount and date as pointers: the validator nulls
// fields the model got wrong, and the client must see that null rather than a
// zero value it could mistake for data.
type receiptDraftResponse struct {
	Amount       *string `json:"amount"`
	Date         *string `json:"date"`
	Description  string  `json:"description,omitempty"`
	MerchantName string  `json:"merchantName,omitempty"`
	Category     string  `json:"category"`
}

func toReceiptDraftResponse(d receipt.Draft) receiptDraftResponse {
	resp := receiptDraftResponse{
		Description:  d.Description,
		MerchantName: d.MerchantName,
		Category:     d.Category,
	}
	if d.Amount.Valid {
		amount := d.Amount.Decimal.String()
		resp.Amount = &amount
	}
	if !d.Date.IsZero() {
		date := d.Date.UTC().Format(dateLayout)
		resp.Date = &date
	}
	return resp
}
