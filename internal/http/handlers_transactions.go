package http

import (
	"net/http"
	"strings"

	"ledger/internal/core"
	"ledger/internal/services"
)

// handleListTransactions lists ?month_year=YYYY-MM, or the trailing window
// when absent, optionally narrowed to ?bank_account=ID.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, actor core.User) {
	accountID, err := queryID(r, "bank_account")
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.svc.Ledger.List(r.Context(), actor, services.ListFilter{
		MonthKey:  strings.TrimSpace(r.URL.Query().Get("month_year")),
		AccountID: accountID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(txs, newTransactionResponse))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, actor core.User) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.svc.Ledger.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTransactionResponse(v))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, actor core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.svc.Ledger.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(v))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, actor core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.svc.Ledger.Update(r.Context(), actor, id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(v))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, actor core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Ledger.Delete(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, actor core.User) {
	sum, err := s.svc.Ledger.MonthlySummary(r.Context(), actor, strings.TrimSpace(r.URL.Query().Get("month_year")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(sum))
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request, actor core.User) {
	rows, err := s.svc.Ledger.CategoryBreakdown(r.Context(), actor, strings.TrimSpace(r.URL.Query().Get("month_year")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(rows, newCategoryAmountResponse))
}
