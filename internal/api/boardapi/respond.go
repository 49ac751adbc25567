package boardapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BearBump/LoadBoard/internal/apperr"
	"github.com/pkg/errors"
)

type errorBody struct {
	Error errorInfo `json:"error"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит бизнес-ошибку в HTTP-статус. Нераспознанная
// ошибка считается временным сбоем инфраструктуры: клиенту 503 и
// совет повторить, детали — только в лог.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, apperr.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperr.ErrPermissionDenied):
		status, code = http.StatusForbidden, "permission_denied"
	case errors.Is(err, apperr.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrConflictLost):
		status, code = http.StatusConflict, "conflict_lost"
	case errors.Is(err, apperr.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	default:
		slog.Error("internal error", "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: errorInfo{
			Code:    "transient_io_error",
			Message: "temporary failure, retry the request",
		}})
		return
	}

	writeJSON(w, status, errorBody{Error: errorInfo{Code: code, Message: err.Error()}})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validationf("malformed request body")
	}
	return nil
}
