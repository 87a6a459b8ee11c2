package error

import (
	"context"
	"errors"
	"net/http"

	"github.com/fixora/analytics/internal/domain"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest      = &AppError{Code: "BAD_REQUEST", Message: "Bad request", Status: http.StatusBadRequest}
	ErrUnauthorized    = &AppError{Code: "UNAUTHORIZED", Message: "Unauthorized", Status: http.StatusUnauthorized}
	ErrNotFound        = &AppError{Code: "NOT_FOUND", Message: "Not found", Status: http.StatusNotFound}
	ErrInternalServer  = &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error", Status: http.StatusInternalServerError}
	ErrConflict        = &AppError{Code: "CONFLICT", Message: "Conflict", Status: http.StatusConflict}
	ErrTooManyRequests = &AppError{Code: "RATE_LIMITED", Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests}
)

func NewBadRequest(message string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: message, Status: http.StatusBadRequest}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: message, Status: http.StatusUnauthorized}
}

func NewNotFound(message string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, Status: http.StatusNotFound}
}

func NewInternalServer(message string) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: message, Status: http.StatusInternalServerError}
}

func NewConflict(message string) *AppError {
	return &AppError{Code: "CONFLICT", Message: message, Status: http.StatusConflict}
}

func NewServiceUnavailable(message string) *AppError {
	return &AppError{Code: "SERVICE_UNAVAILABLE", Message: message, Status: http.StatusServiceUnavailable}
}

// MapError converts an error into the status and code reported to API
// clients. Domain errors keep their kind as the code.
func MapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if kind, ok := domain.KindOf(err); ok {
		switch kind {
		case domain.KindInvalidWindow, domain.KindInvalidFilter:
			return &AppError{Code: string(kind), Message: err.Error(), Status: http.StatusBadRequest}
		case domain.KindDataUnavailable:
			return &AppError{Code: string(kind), Message: "Metrics data is currently unavailable", Status: http.StatusServiceUnavailable}
		case domain.KindInvariantViolation:
			return &AppError{Code: string(kind), Message: "Metrics data failed validation", Status: http.StatusInternalServerError}
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: "TIMEOUT", Message: "Request timed out", Status: http.StatusGatewayTimeout}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: "CANCELLED", Message: "Request cancelled", Status: http.StatusServiceUnavailable}
	default:
		return NewInternalServer("An unexpected error occurred")
	}
}
