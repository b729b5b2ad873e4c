package http

import (
	"fmt"
	"net/http"

	"welth/internal/cache"
	"welth/internal/core"
	"welth/internal/storage"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.ledger.CreateTransaction(r.Context(), user.ID, draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	t, err := s.ledger.GetTransaction(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	filter := storage.TransactionFilter{
		AccountID: r.URL.Query().Get("accountId"),
		Type:      core.TransactionType(r.URL.Query().Get("type")),
		Category:  r.URL.Query().Get("category"),
	}
	if filter.Type != "" {
		if err := filter.Type.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
	}
	switch r.URL.Query().Get("recurring") {
	case "":
	case "true":
		recurring := true
		filter.IsRecurring = &recurring
	case "false":
		recurring := false
		filter.IsRecurring = &recurring
	default:
		writeError(w, r, fmt.Errorf("%w: recurring must be true or false", core.ErrInvalidInput))
		return
	}

	ts, err := s.ledger.ListTransactions(r.Context(), user.ID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(ts))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.ledger.UpdateTransaction(r.Context(), user.ID, r.PathValue("id"), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	if err := s.ledger.DeleteTransaction(r.Context(), user.ID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, r, fmt.Errorf("%w: ids cannot be empty", core.ErrInvalidInput))
		return
	}

	if err := s.ledger.BulkDeleteTransactions(r.Context(), user.ID, req.IDs); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// invalidateUser drops the user's locally cached views after a mutation.
// Other instances learn through the stale-view exchange.
func (s *Server) invalidateUser(userID string) {
	cache.InvalidateUser[[]byte](s.views, userID)
}
