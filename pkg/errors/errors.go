package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by every layer of the search service. Typed errors
// in internal/domain unwrap to one of these so callers can classify failures
// with errors.Is without knowing the concrete type.
var (
	ErrValidation     = errors.New("document validation failed")
	ErrConnection     = errors.New("search engine unreachable")
	ErrEngine         = errors.New("search engine error")
	ErrMapping        = errors.New("index mapping rejected")
	ErrNotInitialized = errors.New("index lifecycle not initialized")
	ErrConflict       = errors.New("conflict")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternal       = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Conflict creates a 409 error, used when an operation cannot start because
// another one holds the resource (e.g. a reindex already running).
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Code returns the stable machine-readable code for err.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrNotInitialized):
		return "NOT_INITIALIZED"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrConnection):
		return "ENGINE_UNAVAILABLE"
	case errors.Is(err, ErrMapping):
		return "MAPPING_ERROR"
	case errors.Is(err, ErrEngine):
		return "ENGINE_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	// Mapping is checked before engine: a mapping failure is a configuration
	// fault on our side, not a transient upstream problem.
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotInitialized), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrConnection):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrMapping):
		return http.StatusInternalServerError
	case errors.Is(err, ErrEngine):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
