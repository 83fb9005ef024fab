package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog-search/internal/catalog"
	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine/memory"
	"github.com/utafrali/catalog-search/internal/lifecycle"
	"github.com/utafrali/catalog-search/internal/query"
	"github.com/utafrali/catalog-search/internal/service"
	"github.com/utafrali/catalog-search/internal/source"
	"github.com/utafrali/catalog-search/internal/suggest"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	"github.com/utafrali/catalog-search/pkg/health"
)

const testToken = "s3cret"

type response struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func catalogSource() source.DocumentSource {
	return source.Static(
		domain.NewDocument(map[string]any{"id": "12345", "name_de": "Roter Schuh", "color_de": "rot", "gender": "female", "suggest_id": "12345"}),
		domain.NewDocument(map[string]any{"id": "12399", "name_de": "Blaue Hose", "color_de": "blau", "suggest_id": "12399"}),
		domain.NewDocument(map[string]any{"id": "55555", "name_de": "Rote Jacke", "categories_de": "Jacken", "suggest_id": "55555"}),
	)
}

// newIndexedService returns a service over the memory engine with the
// catalog already promoted.
func newIndexedService(t *testing.T) *service.SearchService {
	t.Helper()
	eng := memory.New()
	cfg := catalog.Default()
	svc := service.New(service.Deps{
		Lifecycle:   lifecycle.NewManager(eng, nil, nil, testLogger()),
		Finder:      query.NewBuilder(eng, cfg, catalog.Languages, testLogger()),
		Suggester:   suggest.NewAggregator(eng, cfg, catalog.Languages, suggest.PolicyAbort, testLogger()),
		Source:      catalogSource(),
		IndexConfig: cfg,
		Concurrency: 2,
	}, testLogger())
	_, err := svc.Reindex(context.Background())
	require.NoError(t, err)
	return svc
}

func newTestRouter(svc Service) http.Handler {
	return NewRouter(svc, health.NewHandler(), RouterConfig{
		AdminToken:         testToken,
		SuggestCacheMaxAge: time.Minute,
	}, testLogger())
}

func do(t *testing.T, h http.Handler, method, target, body string, admin bool) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	}
	return w, resp
}

// --- Search ---

func TestSearch_FindsDocuments(t *testing.T) {
	router := newTestRouter(newIndexedService(t))

	w, resp := do(t, router, http.MethodGet, "/api/v1/search?q=jacke&lang=de", "", false)
	require.Equal(t, http.StatusOK, w.Code)

	var got SearchResponse
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "jacke", got.Query)
	require.Equal(t, 1, got.Total)
	assert.Equal(t, "55555", got.Documents[0].ID)
}

func TestSearch_IDPrefix(t *testing.T) {
	router := newTestRouter(newIndexedService(t))

	w, resp := do(t, router, http.MethodGet, "/api/v1/search?q=123", "", false)
	require.Equal(t, http.StatusOK, w.Code)

	var got SearchResponse
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, 2, got.Total)
}

func TestSearch_RequiresQuery(t *testing.T) {
	router := newTestRouter(newIndexedService(t))

	w, resp := do(t, router, http.MethodGet, "/api/v1/search?q=%20%20", "", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestSearch_RejectsMalformedLanguage(t *testing.T) {
	router := newTestRouter(newIndexedService(t))

	w, resp := do(t, router, http.MethodGet, "/api/v1/search?q=hose&lang=deutsch", "", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "Language")
}

func TestSearch_RejectsUnsupportedLanguage(t *testing.T) {
	router := newTestRouter(newIndexedService(t))

	w, resp := do(t, router, http.MethodGet, "/api/v1/search?q=hose&lang=it", "", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestSearch_EngineErrorIsBadGateway(t *testing.T) {
	svc := &stubService{findErr: domain.NewEngineError("search", "products-index", 500, "search_phase_execution_exception", "all shards failed", nil)}

	w, resp := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/search?q=hose", "", false)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "ENGINE_ERROR", resp.Error.Code)
}

// --- Suggest ---

func TestSuggest_ReturnsCompletions(t *testing.T) {
	router := newTestRouter(newIndexedService(t))

	w, resp := do(t, router, http.MethodGet, "/api/v1/search/suggest?q=123", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	var got SuggestResponse
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.ElementsMatch(t, []string{"12345", "12399"}, got.Suggestions)
}

func TestSuggest_BlankTermIsEmptyList(t *testing.T) {
	router := newTestRouter(newIndexedService(t))

	w, resp := do(t, router, http.MethodGet, "/api/v1/search/suggest", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"suggestions":[]}`, string(resp.Data))
}

func TestSuggest_ConnectionErrorIsUnavailable(t *testing.T) {
	svc := &stubService{suggestErr: domain.NewConnectionError("suggest", "products-index", errors.New("dial tcp: refused"))}

	w, resp := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/search/suggest?q=ro", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "ENGINE_UNAVAILABLE", resp.Error.Code)
}

// --- Reindex ---

func TestReindex_RequiresToken(t *testing.T) {
	router := newTestRouter(&stubService{})

	w, _ := do(t, router, http.MethodPost, "/api/v1/search/reindex", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReindex_Accepted(t *testing.T) {
	svc := &stubService{runID: "run-42"}

	w, resp := do(t, newTestRouter(svc), http.MethodPost, "/api/v1/search/reindex", "", true)
	require.Equal(t, http.StatusAccepted, w.Code)

	var got ReindexAccepted
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "run-42", got.RunID)
	assert.Equal(t, 1, svc.started)
}

func TestReindex_ConflictWhileRunning(t *testing.T) {
	svc := &stubService{startErr: apperrors.Conflict("reindex already in progress")}

	w, resp := do(t, newTestRouter(svc), http.MethodPost, "/api/v1/search/reindex", "", true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
	assert.Equal(t, "reindex already in progress", resp.Error.Message)
}

func TestReindex_StatusAndRealRun(t *testing.T) {
	svc := newIndexedService(t)
	router := newTestRouter(svc)

	w, _ := do(t, router, http.MethodPost, "/api/v1/search/reindex", "", true)
	require.Equal(t, http.StatusAccepted, w.Code)
	svc.Wait()

	w, resp := do(t, router, http.MethodGet, "/api/v1/search/reindex", "", true)
	require.Equal(t, http.StatusOK, w.Code)

	var st service.ReindexStatus
	require.NoError(t, json.Unmarshal(resp.Data, &st))
	assert.False(t, st.Running)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, "products-1", st.LastRun.Live)
	assert.Equal(t, int64(3), st.LastRun.Accepted)
}

func TestIndexState(t *testing.T) {
	router := newTestRouter(newIndexedService(t))

	w, resp := do(t, router, http.MethodGet, "/api/v1/search/index", "", false)
	require.Equal(t, http.StatusOK, w.Code)

	var st lifecycle.State
	require.NoError(t, json.Unmarshal(resp.Data, &st))
	assert.False(t, st.Initialized, "a commit ends the write session")
	assert.Equal(t, "products-index", st.Alias)
	assert.Equal(t, "products-2", st.Live.Name)
}

// --- Synonyms ---

func TestSynonyms_RoundTrip(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc)

	w, _ := do(t, router, http.MethodPut, "/api/v1/search/synonyms", `{"synonyms":"hose, jeans"}`, true)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := do(t, router, http.MethodGet, "/api/v1/search/synonyms", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"synonyms":"hose, jeans"}`, string(resp.Data))
}

func TestSynonyms_RejectsBadBody(t *testing.T) {
	w, resp := do(t, newTestRouter(&stubService{}), http.MethodPut, "/api/v1/search/synonyms", `{"synonyms":`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestSynonyms_RejectsBodyOver1MB(t *testing.T) {
	body := `{"synonyms":"` + strings.Repeat("x", maxSynonymBody+1) + `"}`

	w, _ := do(t, newTestRouter(&stubService{}), http.MethodPut, "/api/v1/search/synonyms", body, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSynonyms_WrongToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/synonyms", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	newTestRouter(&stubService{}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// --- Operational endpoints ---

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(&stubService{})

	w, _ := do(t, router, http.MethodGet, "/health/live", "", false)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPprofDisabledByDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	rec := httptest.NewRecorder()
	newTestRouter(&stubService{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// stubService is a hand-rolled Service for error paths.
type stubService struct {
	findErr    error
	suggestErr error
	startErr   error
	runID      string
	started    int
	synonyms   string
}

func (s *stubService) Find(context.Context, string, string, string) ([]domain.Document, error) {
	return nil, s.findErr
}

func (s *stubService) Suggest(context.Context, string, string, string) ([]string, error) {
	return nil, s.suggestErr
}

func (s *stubService) IndexState() lifecycle.State { return lifecycle.State{} }

func (s *stubService) StartReindex(context.Context) (string, error) {
	if s.startErr != nil {
		return "", s.startErr
	}
	s.started++
	return s.runID, nil
}

func (s *stubService) ReindexStatus() service.ReindexStatus { return service.ReindexStatus{} }

func (s *stubService) Synonyms(context.Context) (string, error) { return s.synonyms, nil }

func (s *stubService) UpdateSynonyms(_ context.Context, text string) error {
	s.synonyms = text
	return nil
}
