package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of an error body is read.
const maxErrorBody = 1 << 20

// DownstreamError is a non-2xx answer from another service.
type DownstreamError struct {
	Service string
	Status  int
	Code    string
	Message string
}

func (e *DownstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s returned status %d (%s): %s", e.Service, e.Status, e.Code, e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Message)
}

// Temporary reports whether retrying later may succeed.
func (e *DownstreamError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// downstreamErrorResponse is the error envelope written by pkg/httputil.
type downstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads and closes the body of a non-2xx response and
// returns a *DownstreamError. Structured error envelopes keep their code and
// message; any other body becomes the message.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	out := &DownstreamError{Service: serviceName, Status: resp.StatusCode}
	var envelope downstreamErrorResponse
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		out.Code = envelope.Error.Code
		out.Message = envelope.Error.Message
		return out
	}
	out.Message = strings.TrimSpace(string(body))
	return out
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
