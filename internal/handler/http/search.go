package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/lifecycle"
	"github.com/utafrali/catalog-search/internal/service"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	"github.com/utafrali/catalog-search/pkg/httputil"
	"github.com/utafrali/catalog-search/pkg/validator"
)

// maxSynonymBody bounds PUT /synonyms.
const maxSynonymBody = 1 << 20

// Service is the part of service.SearchService the handlers use.
type Service interface {
	Find(ctx context.Context, text, gender, language string) ([]domain.Document, error)
	Suggest(ctx context.Context, term, gender, language string) ([]string, error)
	IndexState() lifecycle.State
	StartReindex(ctx context.Context) (string, error)
	ReindexStatus() service.ReindexStatus
	Synonyms(ctx context.Context) (string, error)
	UpdateSynonyms(ctx context.Context, text string) error
}

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service Service
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc Service, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// searchParams are the query parameters shared by search and suggest.
type searchParams struct {
	Query    string `validate:"max=256"`
	Gender   string `validate:"omitempty,max=32"`
	Language string `validate:"omitempty,alpha,len=2"`
}

func parseSearchParams(r *http.Request) (searchParams, error) {
	q := r.URL.Query()
	p := searchParams{
		Query:    strings.TrimSpace(q.Get("q")),
		Gender:   strings.TrimSpace(q.Get("gender")),
		Language: strings.TrimSpace(q.Get("lang")),
	}
	if err := validator.Validate(p); err != nil {
		return p, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	return p, nil
}

// UpdateSynonymsRequest is the JSON body of PUT /api/v1/search/synonyms.
type UpdateSynonymsRequest struct {
	Synonyms string `json:"synonyms"`
}

// --- Response DTOs ---

// SearchResponse is the payload of GET /api/v1/search.
type SearchResponse struct {
	Query     string            `json:"query"`
	Documents []domain.Document `json:"documents"`
	Total     int               `json:"total"`
}

// SuggestResponse is the payload of GET /api/v1/search/suggest.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// ReindexAccepted is the payload of POST /api/v1/search/reindex.
type ReindexAccepted struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// SynonymsResponse is the payload of the synonym endpoints.
type SynonymsResponse struct {
	Synonyms string `json:"synonyms"`
}

// --- Handlers ---

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchParams(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if p.Query == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "q is required"},
		})
		return
	}

	docs, err := h.service.Find(r.Context(), p.Query, p.Gender, p.Language)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}

	httputil.WriteData(w, http.StatusOK, SearchResponse{Query: p.Query, Documents: docs, Total: len(docs)})
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchParams(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	suggestions, err := h.service.Suggest(r.Context(), p.Query, p.Gender, p.Language)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	httputil.WriteData(w, http.StatusOK, SuggestResponse{Suggestions: suggestions})
}

// Reindex handles POST /api/v1/search/reindex
func (h *SearchHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	runID, err := h.service.StartReindex(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "reindex started", slog.String("run_id", runID))
	httputil.WriteData(w, http.StatusAccepted, ReindexAccepted{RunID: runID, Status: "reindex started"})
}

// ReindexStatus handles GET /api/v1/search/reindex
func (h *SearchHandler) ReindexStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.service.ReindexStatus())
}

// IndexState handles GET /api/v1/search/index
func (h *SearchHandler) IndexState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.service.IndexState())
}

// Synonyms handles GET /api/v1/search/synonyms
func (h *SearchHandler) Synonyms(w http.ResponseWriter, r *http.Request) {
	text, err := h.service.Synonyms(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, SynonymsResponse{Synonyms: text})
}

// UpdateSynonyms handles PUT /api/v1/search/synonyms. The new rules apply
// from the next reindex on.
func (h *SearchHandler) UpdateSynonyms(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSynonymBody)

	var req UpdateSynonymsRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := h.service.UpdateSynonyms(r.Context(), req.Synonyms); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, SynonymsResponse{Synonyms: req.Synonyms})
}
