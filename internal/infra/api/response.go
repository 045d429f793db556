package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"hosted-checkout/internal/domain"
)

const (
	codeValidation   = "validation_error"
	codeNotFound     = "not_found"
	codeExpired      = "expired"
	codeInvalid      = "invalid_status"
	codeDeclined     = "payment_declined"
	codeRateLimited  = "rate_limited"
	codeUnauthorized = "unauthorized"
	codeBadRequest   = "bad_request"
	codeInternal     = "internal_error"
)

type apiError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Reason  string              `json:"reason,omitempty"`
	Details []domain.FieldError `json:"details,omitempty"`
}

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, msg string, details []domain.FieldError) {
	writeJSON(w, status, envelope{Error: &apiError{Code: code, Message: msg, Details: details}})
}

// writeUseCaseError maps domain errors onto the HTTP error taxonomy. Anything
// unrecognised is an infrastructure fault and is reported without detail.
func writeUseCaseError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	var verr *domain.ValidationError
	var decline *domain.DeclineError
	switch {
	case errors.As(err, &decline):
		writeJSON(w, http.StatusPaymentRequired, envelope{
			Error: &apiError{Code: codeDeclined, Message: decline.Message, Reason: decline.Code},
			Data:  map[string]string{"redirect_url": decline.RedirectURL},
		})
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, codeValidation, "Request validation failed", verr.Fields)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "Session not found", nil)
	case errors.Is(err, domain.ErrSessionExpired):
		writeError(w, http.StatusGone, codeExpired, "Session has expired", nil)
	case errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, codeInvalid, "Session already processed", nil)
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error", nil)
	}
}
