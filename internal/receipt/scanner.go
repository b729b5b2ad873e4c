package receipt

import (
	"context"
	"fmt"
	"log/slog"

	"welth/internal/core"
	"welth/internal/gate"
)

// DefaultMaxImageBytes bounds uploads before any model spend.
const DefaultMaxImageBytes = 5 << 20

// knownMimeTypes maps upload content types to the type actually sent to the
// model; bare "image/jpg" is a common client mistake and coerces to the real
// jpeg type. Anything else falls back to image/jpeg, a lossy declaration
// rather than a conversion, and the model copes or the extraction fails.
var knownMimeTypes = map[string]string{
	"image/jpeg": "image/jpeg",
	"image/jpg":  "image/jpeg",
	"image/png":  "image/png",
	"image/webp": "image/webp",
}

// Scanner is the receipt scan operation: quota check, upload validation,
// extraction, output validation.
type Scanner struct {
	extractor Extractor
	auth      gate.Authorizer
	maxBytes  int
}

func NewScanner(extractor Extractor, auth gate.Authorizer, maxBytes int) *Scanner {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Scanner{
		extractor: extractor,
		auth:      auth,
		maxBytes:  maxBytes,
	}
}

// Scan validates the upload, runs extraction and returns a draft the user
// can review. Nothing here writes to the ledger.
func (s *Scanner) Scan(ctx context.Context, userID string, image []byte, mimeType string) (Draft, error) {
	if err := s.auth.Authorize(ctx, userID, 1); err != nil {
		return Draft{}, err
	}
	if s.extractor == nil {
		return Draft{}, fmt.Errorf("%w: receipt scanning is not configured", core.ErrExtraction)
	}

	if len(image) == 0 {
		return Draft{}, fmt.Errorf("%w: empty image", core.ErrInvalidInput)
	}
	if len(image) > s.maxBytes {
		return Draft{}, fmt.Errorf("%w: image exceeds %d bytes", core.ErrInvalidInput, s.maxBytes)
	}
	normalized, ok := knownMimeTypes[mimeType]
	if !ok {
		slog.InfoContext(ctx, "Unknown image type, sending as jpeg",
			"user_id", userID, "mime_type", mimeType)
		normalized = "image/jpeg"
	}

	raw, err := s.extractor.Extract(ctx, image, normalized)
	if err != nil {
		return Draft{}, err
	}

	draft, err := ParseExtraction(raw)
	if err != nil {
		return Draft{}, err
	}

	amount := "null"
	if draft.Amount.Valid {
		amount = draft.Amount.Decimal.String()
	}
	slog.InfoContext(ctx, "Receipt scanned",
		"user_id", userID,
		"amount", amount,
		"category", draft.Category)
	return draft, nil
}
