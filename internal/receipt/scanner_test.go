package receipt

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"welth/internal/core"
)

// fakeExtractor returns a canned model response and records what it was
// given.
type fakeExtractor struct {
	raw      string
	err      error
	gotMime  string
	gotBytes []byte
}

func (f *fakeExtractor) Extract(_ context.Context, image []byte, mimeType string) (string, error) {
	f.gotBytes = image
	f.gotMime = mimeType
	return f.raw, f.err
}

type allowAll struct{}

func (allowAll) Authorize(context.Context, string, int) error { return nil }

type denyAll struct{}

func (denyAll) Authorize(context.Context, string, int) error { return core.ErrRateLimited }

const validExtraction = `{"amount": 19.90, "date": "2026-08-15", "description": "Lunch", "merchantName": "Osteria", "category": "food"}`

func TestScanHappyPath(t *testing.T) {
	fake := &fakeExtractor{raw: validExtraction}
	s := NewScanner(fake, allowAll{}, 0)

	draft, err := s.Scan(context.Background(), "u1", []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !draft.Amount.Valid || draft.Amount.Decimal.String() != "19.9" {
		t.Fatalf("amount = %+v", draft.Amount)
	}
	if !bytes.Equal(fake.gotBytes, []byte("img")) {
		t.Fatalf("extractor got %q", fake.gotBytes)
	}
	if fake.gotMime != "image/png" {
		t.Fatalf("mime = %q", fake.gotMime)
	}
}

func TestScanCoercesMimeTypes(t *testing.T) {
	tests := []struct {
		name string
		mime string
		want string
	}{
		{"jpg alias", "image/jpg", "image/jpeg"},
		{"pdf falls back to jpeg", "application/pdf", "image/jpeg"},
		{"no mime type falls back to jpeg", "", "image/jpeg"},
		{"webp kept", "image/webp", "image/webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeExtractor{raw: validExtraction}
			s := NewScanner(fake, allowAll{}, 0)

			if _, err := s.Scan(context.Background(), "u1", []byte("img"), tt.mime); err != nil {
				t.Fatalf("scan: %v", err)
			}
			if fake.gotMime != tt.want {
				t.Fatalf("mime = %q, want %q", fake.gotMime, tt.want)
			}
		})
	}
}

func TestScanRejectsBadUploads(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
		mime  string
	}{
		{"empty image", nil, "image/png"},
		{"oversize image", bytes.Repeat([]byte("x"), 11), "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeExtractor{raw: validExtraction}
			s := NewScanner(fake, allowAll{}, 10)

			_, err := s.Scan(context.Background(), "u1", tt.image, tt.mime)
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if fake.gotBytes != nil {
				t.Fatalf("extractor must not run on rejected uploads")
			}
		})
	}
}

func TestScanQuotaCheckedBeforeExtraction(t *testing.T) {
	fake := &fakeExtractor{raw: validExtraction}
	s := NewScanner(fake, denyAll{}, 0)

	_, err := s.Scan(context.Background(), "u1", []byte("img"), "image/png")
	if !errors.Is(err, core.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if fake.gotBytes != nil {
		t.Fatalf("extractor must not run when quota is exhausted")
	}
}

func TestScanKeepsNullAmount(t *testing.T) {
	fake := &fakeExtractor{raw: `{"amount": "12.50", "date": "2026-08-15", "category": "food"}`}
	s := NewScanner(fake, allowAll{}, 0)

	draft, err := s.Scan(context.Background(), "u1", []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if draft.Amount.Valid {
		t.Fatalf("amount = %+v, want null", draft.Amount)
	}
	if !draft.Date.Equal(core.NewDate(2026, 8, 15).Time) {
		t.Fatalf("date = %v", draft.Date)
	}
}

func TestScanPropagatesExtractionFailure(t *testing.T) {
	fake := &fakeExtractor{err: core.ErrExtraction}
	s := NewScanner(fake, allowAll{}, 0)

	_, err := s.Scan(context.Background(), "u1", []byte("img"), "image/webp")
	if !errors.Is(err, core.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}
