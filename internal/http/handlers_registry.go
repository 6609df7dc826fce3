package http

import (
	"net/http"
	"strings"

	"ledger/internal/core"
	"ledger/internal/services"
)

func (s *Server) accountView(r *http.Request, actor core.User, a core.Account) (accountResponse, error) {
	balance, err := s.svc.Accounts.CurrentBalance(r.Context(), actor, a.ID)
	if err != nil {
		return accountResponse{}, err
	}
	return newAccountResponse(a, balance), nil
}

// handleListAccounts lists the actor's accounts with their balances.
// ?active=true hides deactivated accounts.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, actor core.User) {
	activeOnly, err := queryBool(r, "active")
	if err != nil {
		writeError(w, r, err)
		return
	}
	accs, err := s.svc.Accounts.List(r.Context(), actor, activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(accs))
	for _, a := range accs {
		v, err := s.accountView(r, actor, a)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request, actor core.User) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.Accounts.Create(r.Context(), actor, services.AccountInput{
		Name:  sanitizeInput(req.Name),
		Color: sanitizeInput(req.Color),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountResponse(a, core.Money{}))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request, actor core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.Accounts.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.accountView(r, actor, a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request, actor core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req accountPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.Accounts.Update(r.Context(), actor, id, services.AccountPatch{
		Name:   sanitizePtr(req.Name),
		Color:  sanitizePtr(req.Color),
		Active: req.Active,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.accountView(r, actor, a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, actor core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Accounts.Delete(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request, actor core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := s.svc.Accounts.CurrentBalance(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: id, Balance: balance.String()})
}

// handleListCategories supports ?active=true and ?transaction_type=.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, actor core.User) {
	activeOnly, err := queryBool(r, "active")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cats, err := s.svc.Categories.List(r.Context(), actor, services.CategoryFilter{
		ActiveOnly: activeOnly,
		Direction:  core.Direction(strings.TrimSpace(r.URL.Query().Get("transaction_type"))),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(cats, newCategoryResponse))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, actor core.User) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Categories.Create(r.Context(), actor, services.CategoryInput{
		Name:      sanitizeInput(req.Name),
		Direction: req.Direction,
		Color:     sanitizeInput(req.Color),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCategoryResponse(c))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request, actor core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Categories.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCategoryResponse(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request, actor core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Categories.Update(r.Context(), actor, id, services.CategoryPatch{
		Name:      sanitizePtr(req.Name),
		Direction: req.Direction,
		Color:     sanitizePtr(req.Color),
		Active:    req.Active,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCategoryResponse(c))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, actor core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Categories.Delete(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
