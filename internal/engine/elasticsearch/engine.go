package elasticsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
)

// DefaultRequestTimeout bounds every engine call when Config leaves it unset.
const DefaultRequestTimeout = 10 * time.Second

// Config configures the Elasticsearch connection.
type Config struct {
	Addresses      []string
	Username       string
	Password       string
	RequestTimeout time.Duration
	MaxRetries     int
	DisableRetry   bool

	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Engine is an Elasticsearch-backed implementation of engine.EngineClient.
type Engine struct {
	client  *elasticsearch.Client
	timeout time.Duration
	logger  *slog.Logger
}

var _ engine.EngineClient = (*Engine)(nil)

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates a new Elasticsearch engine. No request is sent until the first
// operation.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		MaxRetries:   cfg.MaxRetries,
		DisableRetry: cfg.DisableRetry,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &Engine{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	observe("ping", start, err, res)
	if err != nil {
		return transportError(ctx, "ping", "", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("ping", "", res, false)
	}
	return nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

// transportError classifies a failed round trip. A timed-out call is an
// engine error; anything else means the engine could not be reached.
func transportError(ctx context.Context, op, index string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewEngineError(op, index, 0, "timeout", "request exceeded its deadline", err)
	}
	return domain.NewConnectionError(op, index, err)
}

// responseError turns a non-2xx response into a typed error. A 400 on an
// index-shaping call is reported as a mapping error.
func responseError(op, index string, res *esapi.Response, shaping bool) error {
	var errResp esErrorResponse
	body, _ := io.ReadAll(res.Body)
	if len(body) > 0 {
		_ = json.Unmarshal(body, &errResp)
	}

	if shaping && res.StatusCode == http.StatusBadRequest {
		return domain.NewMappingError(op, index, res.StatusCode, errResp.Error.Type, errResp.Error.Reason, nil)
	}
	return domain.NewEngineError(op, index, res.StatusCode, errResp.Error.Type, errResp.Error.Reason, nil)
}

// decode reads a JSON response body into dst.
func decode(op, index string, res *esapi.Response, dst any) error {
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return domain.NewEngineError(op, index, res.StatusCode, "", "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}
