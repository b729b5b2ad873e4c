package http

import (
	"encoding/json"
	"net/http"

	"welth/internal/cache"
	"welth/internal/core"
	"welth/internal/services"
)

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.accounts.CreateAccount(r.Context(), user.ID, services.AccountDraft{
		Name:      req.Name,
		Type:      core.AccountType(req.Type),
		Balance:   string(req.Balance),
		IsDefault: req.IsDefault,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	writeJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	accounts, err := s.accounts.ListAccounts(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAccountSummary(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	accountID := r.PathValue("id")

	key := cache.AccountKey(user.ID, accountID)
	if body, ok := s.views.Get(key); ok {
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	summary, err := s.accounts.AccountSummary(r.Context(), user.ID, accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := json.Marshal(toAccountSummaryResponse(summary))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.views.Set(key, body)
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleSetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	if err := s.accounts.SetDefaultAccount(r.Context(), user.ID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	if err := s.accounts.DeleteAccount(r.Context(), user.ID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	w.WriteHeader(http.StatusNoContent)
}
