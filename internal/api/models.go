package api

import "github.com/dshills/litsearch/pkg/types"

// SearchRequest is the body of POST /search. top_k is accepted as an alias
// for topK.
type SearchRequest struct {
	Query     string `json:"query" description:"Free-text query"`
	TopK      int    `json:"topK,omitempty" description:"Number of results (1-100, default 5)"`
	TopKSnake int    `json:"top_k,omitempty" description:"Alias for topK"`
}

// PaperResult is one search result
type PaperResult struct {
	ID              string   `json:"id" description:"arXiv id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Year            string   `json:"year"`
	Abstract        string   `json:"abstract"`
	SimilarityScore float64  `json:"similarityScore" description:"Fused score rounded to 4 decimals"`
	URL             string   `json:"url"`
}

// SearchResponse is the body returned by POST /search
type SearchResponse struct {
	Results []PaperResult `json:"results"`
}

// CompareRequest is the body of POST /compare. paper_text is accepted as an
// alias for paperText.
type CompareRequest struct {
	Query          string `json:"query" description:"User text"`
	PaperText      string `json:"paperText,omitempty" description:"Paper text"`
	PaperTextSnake string `json:"paper_text,omitempty" description:"Alias for paperText"`
}

// CompareResponse is the body returned by POST /compare
type CompareResponse struct {
	UserHighlights  []types.HighlightSpan `json:"userHighlights" description:"Spans into the query"`
	PaperHighlights []types.HighlightSpan `json:"paperHighlights" description:"Spans into the paper text"`
}

// HealthResponse is the body returned by GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

// ErrorResponse is written for every non-2xx response
type ErrorResponse struct {
	Error string `json:"error" description:"Error message"`
}

func (r *SearchRequest) topK() int {
	if r.TopK != 0 {
		return r.TopK
	}
	return r.TopKSnake
}

func (r *CompareRequest) paperText() string {
	if r.PaperText != "" {
		return r.PaperText
	}
	return r.PaperTextSnake
}
