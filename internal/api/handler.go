package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog"

	"github.com/dshills/litsearch/internal/searcher"
	"github.com/dshills/litsearch/internal/storage"
	"github.com/dshills/litsearch/pkg/types"
)

// Handler serves the search and compare endpoints
type Handler struct {
	searcher *searcher.Searcher
	index    storage.Index
	logger   zerolog.Logger
}

// NewHandler creates a Handler over a searcher and the index it reads
func NewHandler(srch *searcher.Searcher, index storage.Index, logger zerolog.Logger) *Handler {
	return &Handler{
		searcher: srch,
		index:    index,
		logger:   logger,
	}
}

// Search handles POST /search
func (h *Handler) Search(req *restful.Request, resp *restful.Response) {
	var body SearchRequest
	if err := req.ReadEntity(&body); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		writeError(resp, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(resp, http.StatusBadRequest, types.ErrEmptyQuery)
		return
	}

	result, err := h.searcher.Search(req.Request.Context(), searcher.SearchRequest{
		Query:    body.Query,
		TopK:     body.topK(),
		UseCache: true,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if isClientError(err) {
			status = http.StatusBadRequest
		}
		h.logger.Error().Err(err).Int("status", status).Msg("Search failed")
		writeError(resp, status, err)
		return
	}

	out := SearchResponse{Results: make([]PaperResult, len(result.Hits))}
	for i, hit := range result.Hits {
		doc := hit.Document
		authors := doc.Authors
		if authors == nil {
			authors = []string{}
		}
		out.Results[i] = PaperResult{
			ID:              doc.ID,
			Title:           doc.Title,
			Authors:         authors,
			Year:            doc.Year(),
			Abstract:        doc.Abstract,
			SimilarityScore: searcher.RoundScore(hit.Score),
			URL:             doc.LinkOrDefault(),
		}
	}

	h.logger.Info().
		Str("policy", string(result.Policy)).
		Int("results", len(out.Results)).
		Bool("cache_hit", result.CacheHit).
		Dur("duration", result.Duration).
		Msg("Search complete")

	_ = resp.WriteHeaderAndEntity(http.StatusOK, out)
}

// Compare handles POST /compare
func (h *Handler) Compare(req *restful.Request, resp *restful.Response) {
	var body CompareRequest
	if err := req.ReadEntity(&body); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		writeError(resp, http.StatusBadRequest, err)
		return
	}

	result := h.searcher.Compare(body.Query, body.paperText())

	_ = resp.WriteHeaderAndEntity(http.StatusOK, CompareResponse{
		UserHighlights:  nonNil(result.UserHighlights),
		PaperHighlights: nonNil(result.PaperHighlights),
	})
}

// Health handles GET /health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	status, err := h.index.Status(req.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Index status failed")
		writeError(resp, http.StatusInternalServerError, err)
		return
	}

	_ = resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:    "ok",
		Documents: status.Documents,
	})
}

func isClientError(err error) bool {
	return errors.Is(err, types.ErrEmptyQuery) ||
		errors.Is(err, types.ErrInvalidLimit) ||
		errors.Is(err, types.ErrUnknownPolicy)
}

func writeError(resp *restful.Response, status int, err error) {
	_ = resp.WriteHeaderAndEntity(status, ErrorResponse{Error: err.Error()})
}

func nonNil(spans []types.HighlightSpan) []types.HighlightSpan {
	if spans == nil {
		return []types.HighlightSpan{}
	}
	return spans
}
