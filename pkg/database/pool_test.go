package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryBackoff_ExponentialWithJitter(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := defaultRetryBaseWait << attempt
		minExpected := time.Duration(float64(base) * (1 - retryJitterFraction))
		maxExpected := time.Duration(float64(base) * (1 + retryJitterFraction))

		for i := 0; i < 20; i++ {
			d := retryBackoff(attempt)
			assert.GreaterOrEqual(t, d, minExpected, "attempt %d iteration %d", attempt, i)
			assert.LessOrEqual(t, d, maxExpected, "attempt %d iteration %d", attempt, i)
		}
	}
}

func TestRetryBackoff_NegativeAttempt(t *testing.T) {
	d := retryBackoff(-1)
	assert.GreaterOrEqual(t, d, time.Duration(float64(defaultRetryBaseWait)*(1-retryJitterFraction)))
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"dial tcp 127.0.0.1:5432: connection refused", true},
		{"connection reset by peer", true},
		{"broken pipe", true},
		{"i/o timeout", true},
		{"unexpected EOF", true},
		{"could not connect to server", true},
		{"syntax error at or near", false},
		{"relation \"catalog_documents\" does not exist", false},
		{"password authentication failed for user", false},
	}
	assert.False(t, isConnectionError(nil))
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isConnectionError(errStr(tt.msg)))
		})
	}
}

func TestNewPostgresPool_InvalidURL(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), PostgresConfig{URL: "postgres://%zz"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse postgres config")
}

func TestDefaultPostgresConfig(t *testing.T) {
	cfg := DefaultPostgresConfig("postgres://search@localhost:5432/catalog")
	assert.Equal(t, "postgres://search@localhost:5432/catalog", cfg.URL)
	assert.Positive(t, cfg.MaxConns)
	assert.LessOrEqual(t, cfg.MinConns, cfg.MaxConns)
}

type errStr string

func (e errStr) Error() string { return string(e) }
