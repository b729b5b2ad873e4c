package http

import (
	"fmt"
	"io"
	"net/http"

	"welth/internal/core"
)

// maxReceiptForm bounds the whole multipart body; the scanner enforces its
// own per-image limit on top.
const maxReceiptForm = 10 << 20

func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	if s.scanner == nil {
		writeError(w, r, fmt.Errorf("%w: receipt scanning is not configured", core.ErrExtraction))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptForm)
	if err := r.ParseMultipartForm(maxReceiptForm); err != nil {
		writeError(w, r, fmt.Errorf("%w: malformed multipart form: %v", core.ErrInvalidInput, err))
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: missing receipt file", core.ErrInvalidInput))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: read upload: %v", core.ErrStore, err))
		return
	}

	draft, err := s.scanner.Scan(r.Context(), user.ID, image, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReceiptDraftResponse(draft))
}
