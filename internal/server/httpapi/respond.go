package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"opsboard/internal/common"
	"opsboard/internal/server/services"
)

type envelope struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorBody{Code: code, Message: message}})
}

// respondServiceError translates the sentinel errors the services return
// into HTTP statuses. Anything unrecognized becomes a 500 with a generic
// message so internals never leak to the client.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, common.ErrValidation):
		respondError(w, http.StatusBadRequest, "validation", "invalid input")
	case errors.Is(err, common.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
	case errors.Is(err, common.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
	case errors.Is(err, common.ErrConflict):
		respondError(w, http.StatusConflict, "conflict", "operation not allowed in the current state")
	case errors.Is(err, services.ErrAvatarStorageDisabled):
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "avatar storage is not configured")
	default:
		respondError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
