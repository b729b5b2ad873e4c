package http

import (
	"encoding/json"
	"net/http"

	"welth/internal/cache"
	"welth/internal/core"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	key := cache.DashboardKey(user.ID)
	if body, ok := s.views.Get(key); ok {
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	summaries, err := s.accounts.DashboardSummary(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]accountSummaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, toAccountSummaryResponse(sum))
	}

	body, err := json.Marshal(out)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.views.Set(key, body)
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	key := cache.BudgetKey(user.ID)
	if body, ok := s.views.Get(key); ok {
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	status, err := s.budgets.BudgetStatus(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := json.Marshal(budgetStatusResponse{
		Amount:    status.Budget.Amount.String(),
		Spent:     status.Spent.String(),
		Remaining: status.Remaining.String(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.views.Set(key, body)
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		writeError(w, r, err)
		return
	}

	budget, err := s.budgets.SetBudget(r.Context(), user.ID, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(user.ID)
	writeJSON(w, http.StatusOK, map[string]string{
		"amount": budget.Amount.String(),
	})
}
