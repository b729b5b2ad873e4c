package receipt

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"welth/internal/core"
)

func amountOf(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Draft
	}{
		{
			name: "clean JSON",
			raw:  `{"amount": 42.50, "date": "2026-08-15", "description": "Weekly shop", "merchantName": "Coop", "category": "groceries"}`,
			want: Draft{
				Amount:       amountOf("42.5"),
				Date:         core.NewDate(2026, 8, 15),
				Description:  "Weekly shop",
				MerchantName: "Coop",
				Category:     "groceries",
			},
		},
		{
			name: "fenced and narrated output",
			raw:  "Here is the extraction:\n```json\n{\"amount\": 12, \"date\": \"2026-01-02\", \"description\": \"Coffee\", \"merchantName\": \"Bar\", \"category\": \"food\"}\n```\nLet me know if you need anything else.",
			want: Draft{
				Amount:       amountOf("12"),
				Date:         core.NewDate(2026, 1, 2),
				Description:  "Coffee",
				MerchantName: "Bar",
				Category:     "food",
			},
		},
		{
			name: "unknown category falls back",
			raw:  `{"amount": 9.99, "date": "2026-03-01", "description": "Misc", "merchantName": "Shop", "category": "cryptocurrency"}`,
			want: Draft{
				Amount:       amountOf("9.99"),
				Date:         core.NewDate(2026, 3, 1),
				Description:  "Misc",
				MerchantName: "Shop",
				Category:     core.FallbackExpenseCategory,
			},
		},
		{
			name: "RFC3339 date accepted",
			raw:  `{"amount": 5, "date": "2026-08-15T14:30:00Z", "description": "Snack", "merchantName": "Kiosk", "category": "food"}`,
			want: Draft{
				Amount:       amountOf("5"),
				Date:         core.Date{Time: time.Date(2026, 8, 15, 14, 30, 0, 0, time.UTC)},
				Description:  "Snack",
				MerchantName: "Kiosk",
				Category:     "food",
			},
		},
		{
			name: "quoted amount becomes null",
			raw:  `{"amount": "12.50", "date": "2026-08-15", "category": "food"}`,
			want: Draft{
				Date:     core.NewDate(2026, 8, 15),
				Category: "food",
			},
		},
		{
			name: "missing amount stays null",
			raw:  `{"date": "2026-08-15", "category": "food"}`,
			want: Draft{
				Date:     core.NewDate(2026, 8, 15),
				Category: "food",
			},
		},
		{
			name: "garbage date becomes null",
			raw:  `{"amount": 10, "date": "next tuesday", "category": "food"}`,
			want: Draft{
				Amount:   amountOf("10"),
				Category: "food",
			},
		},
		{
			name: "empty object is an all-null draft",
			raw:  `{}`,
			want: Draft{
				Category: core.FallbackExpenseCategory,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExtraction(tt.raw)
			if err != nil {
				t.Fatalf("ParseExtraction: %v", err)
			}
			if got.Amount.Valid != tt.want.Amount.Valid {
				t.Errorf("amount valid = %v, want %v", got.Amount.Valid, tt.want.Amount.Valid)
			}
			if got.Amount.Valid && !got.Amount.Decimal.Equal(tt.want.Amount.Decimal) {
				t.Errorf("amount = %s, want %s", got.Amount.Decimal, tt.want.Amount.Decimal)
			}
			if !got.Date.Equal(tt.want.Date.Time) {
				t.Errorf("date = %v, want %v", got.Date, tt.want.Date)
			}
			if got.Description != tt.want.Description {
				t.Errorf("description = %q, want %q", got.Description, tt.want.Description)
			}
			if got.MerchantName != tt.want.MerchantName {
				t.Errorf("merchant = %q, want %q", got.MerchantName, tt.want.MerchantName)
			}
			if got.Category != tt.want.Category {
				t.Errorf("category = %q, want %q", got.Category, tt.want.Category)
			}
		})
	}
}

func TestParseExtractionFailsWithoutPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no JSON at all", "I cannot read this image, sorry."},
		{"truncated JSON", `{"amount": 10, "date":`},
		{"malformed JSON", `{"amount": 10,, "date": "2026-08-15"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExtraction(tt.raw)
			if !errors.Is(err, core.ErrExtraction) {
				t.Fatalf("expected ErrExtraction, got %v", err)
			}
		})
	}
}
