package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/storage/memory"
)

var fixedNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

type testAPI struct {
	t     *testing.T
	srv   *Server
	users *services.UserService
}

func newTestAPI(t *testing.T, opts Options) *testAPI {
	t.Helper()
	store := memory.New()
	users := services.NewUserServiceWithCost(store, nil, bcrypt.MinCost)
	srv := NewServer(":0", Services{
		Users:      users,
		Accounts:   services.NewAccountService(store, nil),
		Categories: services.NewCategoryService(store, nil),
		Ledger:     services.NewLedgerServiceWithClock(store, nil, func() time.Time { return fixedNow }),
	}, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testAPI{t: t, srv: srv, users: users}
}

// do sends a request as user (password "secret"); an empty user sends no
// credentials. body is JSON-encoded unless it is a string.
func (a *testAPI) do(method, path, user string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.SetBasicAuth(user, "secret")
	}
	rr := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) register(username string) {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/api/register", "", map[string]string{
		"username": username, "email": username + "@example.com",
		"password": "secret", "password_confirm": "secret",
	})
	if rr.Code != http.StatusCreated {
		a.t.Fatalf("register %s: status %d body %s", username, rr.Code, rr.Body)
	}
}

func (a *testAPI) admin() {
	a.t.Helper()
	_, _, err := a.users.EnsureUser(context.Background(), core.User{Username: "admin", Email: "admin@example.com", Role: core.RoleAdmin, Active: true}, "secret")
	if err != nil {
		a.t.Fatalf("EnsureUser: %v", err)
	}
}

// create POSTs body and returns the new resource id.
func (a *testAPI) create(path, user string, body any) int64 {
	a.t.Helper()
	rr := a.do(http.MethodPost, path, user, body)
	if rr.Code != http.StatusCreated {
		a.t.Fatalf("POST %s: status %d body %s", path, rr.Code, rr.Body)
	}
	var out struct {
		ID int64 `json:"id"`
	}
	decode(a.t, rr, &out)
	return out.ID
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, code int, kind string) {
	t.Helper()
	if rr.Code != code {
		t.Fatalf("status = %d, want %d; body %s", rr.Code, code, rr.Body)
	}
	if kind == "" {
		return
	}
	var e errorResponse
	decode(t, rr, &e)
	if e.Kind != kind {
		t.Fatalf("kind = %q, want %q (error %q)", e.Kind, kind, e.Error)
	}
}

// seed registers user with a Checking account and Salary/Groceries groups.
func (a *testAPI) seed(user string) (account, salary, groceries int64) {
	a.register(user)
	account = a.create("/api/bank-accounts", user, map[string]string{"name": "Checking"})
	salary = a.create("/api/category-groups", user, map[string]string{"name": "Salary", "transaction_type": "income"})
	groceries = a.create("/api/category-groups", user, map[string]string{"name": "Groceries", "transaction_type": "expense"})
	return
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := api.do(http.MethodGet, path, "", nil); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	down := newTestAPI(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	if rr := down.do(http.MethodGet, "/readyz", "", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing check = %d", rr.Code)
	}
}

func TestRegisterAndProfile(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr := api.do(http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice", "password": "secret", "password_confirm": "other",
	})
	wantStatus(t, rr, http.StatusBadRequest, "invalid_input")

	api.register("alice")
	rr = api.do(http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice", "password": "secret", "password_confirm": "secret",
	})
	wantStatus(t, rr, http.StatusConflict, "duplicate_name")

	rr = api.do(http.MethodGet, "/api/profile", "", nil)
	wantStatus(t, rr, http.StatusUnauthorized, "")
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("missing Basic challenge")
	}

	rr = api.do(http.MethodGet, "/api/profile", "alice", nil)
	wantStatus(t, rr, http.StatusOK, "")
	var u userResponse
	decode(t, rr, &u)
	if u.Username != "alice" || u.Role != core.RoleUser || !u.Active {
		t.Fatalf("profile = %+v", u)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Fatalf("profile leaks password data: %s", rr.Body)
	}
}

func TestLedgerFlow(t *testing.T) {
	api := newTestAPI(t, Options{})
	account, salary, groceries := api.seed("alice")

	api.create("/api/transactions", "alice", map[string]any{
		"bank_account": account, "category_group": salary, "transaction_type": "income",
		"amount": "1000.00", "description": "March pay", "transaction_date": "2024-03-05",
	})
	api.create("/api/transactions", "alice", map[string]any{
		"bank_account": account, "category_group": groceries, "transaction_type": "expense",
		"amount": 250.5, "description": "Food", "transaction_date": "2024-03-10",
	})

	rr := api.do(http.MethodGet, "/api/financial-summary?month_year=2024-03", "alice", nil)
	wantStatus(t, rr, http.StatusOK, "")
	var sum summaryResponse
	decode(t, rr, &sum)
	want := summaryResponse{MonthKey: "2024-03", TotalIncome: "1000.00", TotalExpense: "250.50", Balance: "749.50", TransactionCount: 2}
	if sum != want {
		t.Fatalf("summary = %+v, want %+v", sum, want)
	}

	rr = api.do(http.MethodGet, "/api/financial-summary", "alice", nil) // defaults to March 2024
	decode(t, rr, &sum)
	if sum.MonthKey != "2024-03" || sum.Balance != "749.50" {
		t.Fatalf("default month summary = %+v", sum)
	}

	rr = api.do(http.MethodGet, "/api/transactions?month_year=2024-03", "alice", nil)
	wantStatus(t, rr, http.StatusOK, "")
	var txs []transactionResponse
	decode(t, rr, &txs)
	if len(txs) != 2 {
		t.Fatalf("got %d transactions", len(txs))
	}
	if txs[0].FormattedAmount != "-250.50" || txs[0].FormattedDate != "10/03/2024" || txs[0].MonthKey != "2024-03" {
		t.Fatalf("newest transaction = %+v", txs[0])
	}
	if txs[1].FormattedAmount != "+1000.00" {
		t.Fatalf("oldest transaction = %+v", txs[1])
	}

	rr = api.do(http.MethodGet, fmt.Sprintf("/api/bank-accounts/%d/balance", account), "alice", nil)
	var bal balanceResponse
	decode(t, rr, &bal)
	if bal.Balance != "749.50" {
		t.Fatalf("balance = %+v", bal)
	}

	rr = api.do(http.MethodGet, "/api/bank-accounts", "alice", nil)
	var accs []accountResponse
	decode(t, rr, &accs)
	if len(accs) != 1 || accs[0].Balance != "749.50" {
		t.Fatalf("accounts = %+v", accs)
	}

	rr = api.do(http.MethodGet, "/api/financial-summary/categories?month_year=2024-03", "alice", nil)
	wantStatus(t, rr, http.StatusOK, "")
	var rows []categoryAmountResponse
	decode(t, rr, &rows)
	if len(rows) != 1 || rows[0].Name != "Groceries" || rows[0].Amount != "250.50" || rows[0].Percentage.String() != "100" {
		t.Fatalf("breakdown = %+v", rows)
	}

	id := txs[0].ID
	rr = api.do(http.MethodPatch, fmt.Sprintf("/api/transactions/%d", id), "alice", map[string]any{"amount": "300"})
	wantStatus(t, rr, http.StatusOK, "")
	var updated transactionResponse
	decode(t, rr, &updated)
	if updated.Amount != "300.00" || updated.Description != "Food" {
		t.Fatalf("updated = %+v", updated)
	}

	rr = api.do(http.MethodDelete, fmt.Sprintf("/api/transactions/%d", id), "alice", nil)
	wantStatus(t, rr, http.StatusNoContent, "")
	rr = api.do(http.MethodGet, fmt.Sprintf("/api/transactions/%d", id), "alice", nil)
	wantStatus(t, rr, http.StatusNotFound, "not_found")
}

func TestTransactionErrors(t *testing.T) {
	api := newTestAPI(t, Options{})
	account, salary, groceries := api.seed("alice")
	bobAccount, _, _ := api.seed("bob")

	base := func(overrides map[string]any) map[string]any {
		b := map[string]any{
			"bank_account": account, "category_group": groceries, "transaction_type": "expense",
			"amount": "10.00", "description": "x", "transaction_date": "2024-03-01",
		}
		for k, v := range overrides {
			b[k] = v
		}
		return b
	}

	tests := []struct {
		name string
		body any
		code int
		kind string
	}{
		{"other user's account", base(map[string]any{"bank_account": bobAccount}), http.StatusBadRequest, "invalid_reference"},
		{"missing category", base(map[string]any{"category_group": 9999}), http.StatusBadRequest, "invalid_reference"},
		{"direction mismatch", base(map[string]any{"category_group": salary}), http.StatusBadRequest, "direction_mismatch"},
		{"negative amount", base(map[string]any{"amount": "-5"}), http.StatusBadRequest, "invalid_amount"},
		{"malformed amount", base(map[string]any{"amount": "abc"}), http.StatusBadRequest, "invalid_amount"},
		{"missing amount", base(map[string]any{"amount": nil}), http.StatusBadRequest, "invalid_amount"},
		{"amount above maximum", base(map[string]any{"amount": "10000000000"}), http.StatusBadRequest, "invalid_amount"},
		{"huge exponent", base(map[string]any{"amount": json.RawMessage("1e2000000000")}), http.StatusBadRequest, "invalid_amount"},
		{"bad date", base(map[string]any{"transaction_date": "05/03/2024"}), http.StatusBadRequest, "invalid_date_format"},
		{"missing date", base(map[string]any{"transaction_date": ""}), http.StatusBadRequest, "invalid_date_format"},
		{"unknown field", base(map[string]any{"currency": "EUR"}), http.StatusBadRequest, "invalid_input"},
		{"not json", "amount=1", http.StatusBadRequest, "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(http.MethodPost, "/api/transactions", "alice", tt.body)
			wantStatus(t, rr, tt.code, tt.kind)
		})
	}

	for _, q := range []string{"month_year=2024-13", "month_year=march", "bank_account=x"} {
		rr := api.do(http.MethodGet, "/api/transactions?"+q, "alice", nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("GET ?%s status = %d", q, rr.Code)
		}
	}
	rr := api.do(http.MethodGet, "/api/financial-summary?month_year=2024-3-1", "alice", nil)
	wantStatus(t, rr, http.StatusBadRequest, "invalid_date_format")
}

func TestOwnershipIsolation(t *testing.T) {
	api := newTestAPI(t, Options{})
	account, _, groceries := api.seed("alice")
	api.register("bob")

	paths := []string{
		fmt.Sprintf("/api/bank-accounts/%d", account),
		fmt.Sprintf("/api/bank-accounts/%d/balance", account),
		fmt.Sprintf("/api/category-groups/%d", groceries),
	}
	for _, p := range paths {
		wantStatus(t, api.do(http.MethodGet, p, "bob", nil), http.StatusNotFound, "not_found")
	}
	wantStatus(t, api.do(http.MethodDelete, paths[0], "bob", nil), http.StatusNotFound, "not_found")
	wantStatus(t, api.do(http.MethodGet, "/api/bank-accounts/abc", "bob", nil), http.StatusNotFound, "not_found")

	rr := api.do(http.MethodGet, "/api/bank-accounts", "bob", nil)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("bob sees accounts: %s", rr.Body)
	}
}

func TestRegistryEndpoints(t *testing.T) {
	api := newTestAPI(t, Options{})
	account, salary, _ := api.seed("alice")

	rr := api.do(http.MethodPost, "/api/bank-accounts", "alice", map[string]string{"name": "Checking"})
	wantStatus(t, rr, http.StatusConflict, "duplicate_name")

	// same name in the other direction is allowed
	api.create("/api/category-groups", "alice", map[string]string{"name": "Salary", "transaction_type": "expense"})

	rr = api.do(http.MethodPatch, fmt.Sprintf("/api/bank-accounts/%d", account), "alice", map[string]any{"is_active": false})
	wantStatus(t, rr, http.StatusOK, "")
	var acc accountResponse
	decode(t, rr, &acc)
	if acc.Active || acc.Name != "Checking" {
		t.Fatalf("patched account = %+v", acc)
	}

	rr = api.do(http.MethodGet, "/api/bank-accounts?active=true", "alice", nil)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("inactive account listed: %s", rr.Body)
	}

	rr = api.do(http.MethodGet, "/api/category-groups?transaction_type=income", "alice", nil)
	var cats []categoryResponse
	decode(t, rr, &cats)
	if len(cats) != 1 || cats[0].ID != salary {
		t.Fatalf("income categories = %+v", cats)
	}
	wantStatus(t, api.do(http.MethodGet, "/api/category-groups?transaction_type=transfer", "alice", nil), http.StatusBadRequest, "invalid_input")

	wantStatus(t, api.do(http.MethodDelete, fmt.Sprintf("/api/category-groups/%d", salary), "alice", nil), http.StatusNoContent, "")
	wantStatus(t, api.do(http.MethodDelete, fmt.Sprintf("/api/bank-accounts/%d", account), "alice", nil), http.StatusNoContent, "")
	wantStatus(t, api.do(http.MethodGet, fmt.Sprintf("/api/bank-accounts/%d", account), "alice", nil), http.StatusNotFound, "not_found")
}

func TestUserAdministration(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.admin()
	api.register("bob")

	wantStatus(t, api.do(http.MethodGet, "/api/users", "bob", nil), http.StatusForbidden, "forbidden")

	rr := api.do(http.MethodGet, "/api/users", "admin", nil)
	wantStatus(t, rr, http.StatusOK, "")
	var users []userResponse
	decode(t, rr, &users)
	if len(users) != 2 || users[0].Username != "bob" {
		t.Fatalf("users (newest first) = %+v", users)
	}
	bobID, adminID := users[0].ID, users[1].ID

	wantStatus(t, api.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", adminID), "admin", nil), http.StatusBadRequest, "self_deletion")

	// bob is authenticated and cached, then deactivated
	wantStatus(t, api.do(http.MethodGet, "/api/profile", "bob", nil), http.StatusOK, "")
	rr = api.do(http.MethodPatch, fmt.Sprintf("/api/users/%d", bobID), "admin", map[string]any{"is_active": false, "first_name": "Bob"})
	wantStatus(t, rr, http.StatusOK, "")
	var bob userResponse
	decode(t, rr, &bob)
	if bob.Active || bob.FirstName != "Bob" {
		t.Fatalf("patched bob = %+v", bob)
	}
	wantStatus(t, api.do(http.MethodGet, "/api/profile", "bob", nil), http.StatusUnauthorized, "")

	// PUT is a partial update too
	rr = api.do(http.MethodPut, fmt.Sprintf("/api/users/%d", bobID), "admin", map[string]any{"last_name": "Builder"})
	wantStatus(t, rr, http.StatusOK, "")
	decode(t, rr, &bob)
	if bob.LastName != "Builder" || bob.FirstName != "Bob" || bob.Active {
		t.Fatalf("PUT bob = %+v", bob)
	}

	wantStatus(t, api.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", bobID), "admin", nil), http.StatusOK, "")
	wantStatus(t, api.do(http.MethodGet, fmt.Sprintf("/api/users/%d", bobID), "admin", nil), http.StatusNotFound, "not_found")
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	api := newTestAPI(t, Options{RateLimitPerMinute: 2})
	api.register("alice")
	api.create("/api/bank-accounts", "alice", map[string]string{"name": "A"})

	rr := api.do(http.MethodPost, "/api/bank-accounts", "alice", map[string]string{"name": "B"})
	wantStatus(t, rr, http.StatusTooManyRequests, "rate_limited")
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	wantStatus(t, api.do(http.MethodGet, "/api/bank-accounts", "alice", nil), http.StatusOK, "")
}

func TestMiddlewareHeaders(t *testing.T) {
	api := newTestAPI(t, Options{})
	rr := api.do(http.MethodGet, "/healthz", "", nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing security headers")
	}

	rr = api.do(http.MethodPut, "/api/transactions", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT status = %d, want 405", rr.Code)
	}
}
