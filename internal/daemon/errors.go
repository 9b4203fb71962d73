package daemon

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/roster/internal/auth"
	"github.com/felixgeelhaar/roster/internal/domain"
)

// Error codes returned in APIError.Code.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeValidation   = "VALIDATION_FAILED"
	CodeDuplicate    = "DUPLICATE_MATRICULA"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// APIError represents a structured API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NewAPIError creates a new API error
func NewAPIError(code string, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// ErrorResponse is the JSON structure for error responses
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// writeError logs apiErr and writes it as the response body.
func writeError(w http.ResponseWriter, r *http.Request, status int, apiErr *APIError) {
	attrs := []any{
		"correlation_id", GetCorrelationID(r.Context()),
		"code", apiErr.Code,
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
	}
	if apiErr.cause != nil {
		attrs = append(attrs, "cause", apiErr.cause.Error())
	}

	if status >= 500 {
		slog.Error("api error", attrs...)
	} else {
		slog.Debug("api error", attrs...)
	}

	writeJSON(w, status, ErrorResponse{Error: apiErr})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeStoreError maps a roster or auth error to its HTTP status.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		writeError(w, r, http.StatusUnprocessableEntity,
			NewAPIError(CodeValidation, "validation failed").WithDetails(verr.Fields).WithCause(err))
	case errors.Is(err, domain.ErrDuplicateMatricula):
		writeError(w, r, http.StatusConflict,
			NewAPIError(CodeDuplicate, "matricula already in use").WithCause(err))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound,
			NewAPIError(CodeNotFound, "student not found").WithCause(err))
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized,
			NewAPIError(CodeUnauthorized, "invalid username or password"))
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, auth.ErrSessionNotFound):
		writeError(w, r, http.StatusUnauthorized,
			NewAPIError(CodeUnauthorized, "not authenticated"))
	default:
		writeError(w, r, http.StatusInternalServerError,
			NewAPIError(CodeInternal, "internal error").WithCause(err))
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, message string, cause error) {
	writeError(w, r, http.StatusBadRequest, NewAPIError(CodeBadRequest, message).WithCause(cause))
}
