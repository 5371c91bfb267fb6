package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/validator"

	authsvc "github.com/dmitrymomot/authkit/pkg/auth"
)

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status string            `json:"status"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (m *Module) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		m.logger.Error("failed to encode response", logger.Error(err))
	}
}

func (m *Module) respondMessage(w http.ResponseWriter, message string) {
	m.respondJSON(w, http.StatusOK, messageResponse{Status: "success", Message: message})
}

// respondError maps domain errors onto HTTP statuses. Unrecognized errors
// are logged and surfaced as an opaque 500.
func (m *Module) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, ve := range verrs {
			fields[ve.Field] = ve.Message
		}
		m.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Status: "error",
			Error:  "validation failed",
			Fields: fields,
		})
		return
	}

	status := statusOf(err)
	if status == http.StatusInternalServerError {
		m.logger.ErrorContext(r.Context(), "request failed",
			logger.Error(err),
			logger.Component("http"),
		)
		m.respondJSON(w, status, errorResponse{Status: "error", Error: "internal server error"})
		return
	}

	m.respondJSON(w, status, errorResponse{Status: "error", Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, authsvc.ErrEmailNotVerified):
		return http.StatusForbidden
	case errors.Is(err, authsvc.ErrUsernameExists),
		errors.Is(err, authsvc.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, authsvc.ErrUserNotFound),
		errors.Is(err, authsvc.ErrProviderNotFound),
		errors.Is(err, authsvc.ErrVerificationTokenNotFound),
		errors.Is(err, authsvc.ErrTwoFactorTokenNotFound),
		errors.Is(err, authsvc.ErrResetTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, authsvc.ErrVerificationTokenExpired),
		errors.Is(err, authsvc.ErrTwoFactorTokenExpired),
		errors.Is(err, authsvc.ErrResetTokenExpired),
		errors.Is(err, authsvc.ErrInvalidTwoFactorCode),
		errors.Is(err, authsvc.ErrMissingAuthCode):
		return http.StatusBadRequest
	case errors.Is(err, authsvc.ErrOAuthExchange):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
