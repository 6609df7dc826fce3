package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// failure pairs a ledger error kind with its status and a short name for
// clients.
type failure struct {
	kind   error
	status int
	name   string
}

var failures = []failure{
	{core.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{core.ErrNotFound, http.StatusNotFound, "not_found"},
	{core.ErrForbidden, http.StatusForbidden, "forbidden"},
	{core.ErrDuplicateName, http.StatusConflict, "duplicate_name"},
	{core.ErrInvalidReference, http.StatusBadRequest, "invalid_reference"},
	{core.ErrDirectionMismatch, http.StatusBadRequest, "direction_mismatch"},
	{core.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{core.ErrInvalidDateFormat, http.StatusBadRequest, "invalid_date_format"},
	{core.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{core.ErrSelfDeletion, http.StatusBadRequest, "self_deletion"},
}

// statusFor maps err to an HTTP status and kind name. Unknown errors are 500.
func statusFor(err error) (int, string) {
	for _, f := range failures {
		if errors.Is(err, f.kind) {
			return f.status, f.name
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders err as JSON. Internal errors are logged and their
// message withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}
