package receipt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"welth/internal/core"
)

// Draft is a validated extraction result, ready to prefill a transaction
// form. It is a suggestion, not a ledger write: fields the model got wrong
// are null rather than guessed, and the user fills them in.
type Draft struct {
	Amount       decimal.NullDecimal
	Date         core.Date
	Description  string
	MerchantName string
	Category     string
}

// ParseExtraction validates raw model output into a Draft.
//
// Models wrap JSON in prose and code fences, so the parser keeps only the
// text between the first '{' and the last '}'; no such payload is the one
// hard failure. Inside the payload every field degrades independently: an
// amount that is not a JSON number (a quoted "12.50" is a formatting
// hallucination, not money) becomes null, an unparseable date becomes the
// zero Date, and an unknown category falls back to the default expense
// category instead of poisoning the draft.
func ParseExtraction(raw string) (Draft, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return Draft{}, fmt.Errorf("%w: no JSON object in model output", core.ErrExtraction)
	}

	var payload struct {
		Amount       any    `json:"amount"`
		Date         string `json:"date"`
		Description  string `json:"description"`
		MerchantName string `json:"merchantName"`
		Category     string `json:"category"`
	}
	dec := json.NewDecoder(strings.NewReader(raw[start : end+1]))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return Draft{}, fmt.Errorf("%w: malformed JSON in model output: %v", core.ErrExtraction, err)
	}

	category := payload.Category
	if !core.KnownCategory(category) {
		category = core.FallbackExpenseCategory
	}

	return Draft{
		Amount:       parseAmountField(payload.Amount),
		Date:         parseDateField(payload.Date),
		Description:  strings.TrimSpace(payload.Description),
		MerchantName: strings.TrimSpace(payload.MerchantName),
		Category:     category,
	}, nil
}

// parseAmountField accepts only a genuine JSON number; anything else is null.
func parseAmountField(v any) decimal.NullDecimal {
	num, ok := v.(json.Number)
	if !ok {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// parseDateField accepts a plain date or a full RFC 3339 timestamp; anything
// else is the zero Date.
func parseDateField(s string) core.Date {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return core.Date{Time: t.UTC()}
		}
	}
	return core.Date{}
}
