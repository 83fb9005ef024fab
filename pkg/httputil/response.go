package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	"github.com/utafrali/catalog-search/pkg/logger"
)

// Response is the JSON envelope every endpoint answers with.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error part of the envelope.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Invalid   []string          `json:"invalid_fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// fieldErrors is implemented by validator.ValidationError.
type fieldErrors interface {
	Fields() map[string]string
}

// documentErrors is implemented by domain.ValidationError.
type documentErrors interface {
	Fields() []string
}

// WriteJSON writes v with the given status. Encoding errors are dropped
// because the header is already sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps data in the envelope and writes it with status.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Data: data})
}

// WriteError maps err to a status and a stable code through pkg/errors and
// writes the error envelope. Internal errors are logged and their message is
// hidden from the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	status := apperrors.HTTPStatus(err)
	resp := &ErrorResponse{
		Code:      apperrors.Code(err),
		Message:   err.Error(),
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
	}

	var fe fieldErrors
	if errors.As(err, &fe) {
		resp.Code = "VALIDATION_ERROR"
		resp.Fields = fe.Fields()
	}
	var de documentErrors
	if errors.As(err, &de) {
		resp.Invalid = de.Fields()
	}

	switch {
	case status == http.StatusInternalServerError:
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if resp.Code == "INTERNAL_ERROR" {
			resp.Message = "an internal error occurred"
		}
	case status >= 500:
		l.WarnContext(r.Context(), "upstream error",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{Error: resp})
}
