package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

const (
	MessageValidationError  = "Request validation error"
	MessageInternalError    = "Internal server error"
	MessageNotFound         = "Resource not found"
	MessageMethodNotAllowed = "Method not allowed"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Response   any    `json:"response"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      any    `json:"error"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// Success writes a successful response envelope
func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, SuccessResponse{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Response:   data,
	})
}

// Error writes an error response envelope
func Error(w http.ResponseWriter, status int, message string, detail any) {
	JSON(w, status, ErrorResponse{
		Success:    false,
		StatusCode: status,
		Message:    message,
		Error:      detail,
	})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes the error envelope for err. Client errors carry the
// domain message; server errors are reported generically.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	if status >= http.StatusInternalServerError {
		Error(w, status, MessageInternalError, "An unexpected error occurred.")
		return
	}

	var domainErr *domain.DomainError
	errors.As(err, &domainErr)

	message := domainErr.Message
	if status == http.StatusUnprocessableEntity {
		message = MessageValidationError
	}
	Error(w, status, message, domainErr.Message)
}
