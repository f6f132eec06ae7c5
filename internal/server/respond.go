package server

import (
	"encoding/json"
	"net/http"

	"github.com/jacksonlee411/Groves-And-Gates/internal/routing"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/httperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code string, msg string) {
	routing.WriteError(w, r, status, code, msg)
}

// writeServiceError maps the httperr taxonomy onto HTTP statuses. The
// error message doubles as the stable code: services raise UPPER_SNAKE
// strings.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	msg := err.Error()
	switch {
	case httperr.IsBadRequest(err):
		writeAPIError(w, r, http.StatusBadRequest, "bad_request", msg)
	case httperr.IsNotFound(err):
		writeAPIError(w, r, http.StatusNotFound, "not_found", msg)
	case httperr.IsConflict(err):
		writeAPIError(w, r, http.StatusConflict, "conflict", msg)
	case httperr.IsInvalidModel(err):
		writeAPIError(w, r, http.StatusUnprocessableEntity, "invalid_model", msg)
	case httperr.IsUnauthorized(err):
		writeAPIError(w, r, http.StatusForbidden, "forbidden", msg)
	case isPgInvalidInput(err):
		writeAPIError(w, r, http.StatusBadRequest, "bad_request", stablePgMessage(err))
	default:
		writeAPIError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
