package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"marketim/internal/model"

	"github.com/rs/zerolog"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps a service error onto an HTTP response. Domain errors
// carry their own code and message; anything else is an internal failure.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	status := statusForCode(domainErr.Code)
	logger.Warn().
		Str("code", domainErr.Code).
		Str("error", domainErr.Message).
		Int("status", status).
		Msg("request rejected")
	writeJSON(w, status, ErrorResponse{Error: domainErr.Message, Code: domainErr.Code})
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeOrderNotFound, model.ErrCodeProductNotFound:
		return http.StatusNotFound
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeInvalidTransition:
		return http.StatusConflict
	case model.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
