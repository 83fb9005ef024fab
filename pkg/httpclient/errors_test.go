package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestParseResponseError_Structured(t *testing.T) {
	err := ParseResponseError(response(http.StatusNotFound,
		`{"error":{"code":"NOT_FOUND","message":"page 9 not found"}}`), "product-service")

	var de *DownstreamError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "product-service", de.Service)
	assert.Equal(t, http.StatusNotFound, de.Status)
	assert.Equal(t, "NOT_FOUND", de.Code)
	assert.Equal(t, "product-service returned status 404 (NOT_FOUND): page 9 not found", err.Error())
}

func TestParseResponseError_Unstructured(t *testing.T) {
	err := ParseResponseError(response(http.StatusBadGateway, "<html>bad gateway</html>\n"), "product-service")

	var de *DownstreamError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "<html>bad gateway</html>", de.Message)
	assert.True(t, de.Temporary())
}

func TestParseResponseError_EmptyBody(t *testing.T) {
	err := ParseResponseError(response(http.StatusServiceUnavailable, ""), "product-service")
	assert.Equal(t, "product-service returned status 503", err.Error())
}

func TestParseResponseError_NullErrorEnvelope(t *testing.T) {
	err := ParseResponseError(response(http.StatusInternalServerError, `{"error":null}`), "product-service")

	var de *DownstreamError
	require.True(t, errors.As(err, &de))
	assert.Empty(t, de.Code)
	assert.Equal(t, `{"error":null}`, de.Message)
}

func TestDownstreamError_Temporary(t *testing.T) {
	assert.True(t, (&DownstreamError{Status: 500}).Temporary())
	assert.True(t, (&DownstreamError{Status: 429}).Temporary())
	assert.False(t, (&DownstreamError{Status: 400}).Temporary())
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(400))
	assert.True(t, IsClientError(499))
	assert.False(t, IsClientError(500))
	assert.False(t, IsClientError(200))
}
