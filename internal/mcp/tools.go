package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/litsearch/internal/eval"
	"github.com/dshills/litsearch/internal/fusion"
	"github.com/dshills/litsearch/internal/indexer"
	"github.com/dshills/litsearch/internal/searcher"
	"github.com/dshills/litsearch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeFileNotFound     = -32001 // Corpus or evaluation file missing
	ErrorCodeIngestInProgress = -32002 // Another ingest is already running
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

// handleSearchPapers handles the search_papers tool invocation
func (s *Server) handleSearchPapers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", searcher.DefaultTopK)
	if topK < 1 || topK > searcher.MaxTopK {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 100", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	var policy fusion.Policy
	if name := getStringDefault(args, "policy", ""); name != "" {
		p, err := fusion.ParsePolicy(name)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid policy", map[string]interface{}{
				"param":   "policy",
				"value":   name,
				"allowed": []string{string(fusion.PolicyRRF), string(fusion.PolicyWeighted)},
			})
		}
		policy = p
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:    query,
		TopK:     topK,
		Policy:   policy,
		UseCache: true,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, len(resp.Hits))
	for i, hit := range resp.Hits {
		doc := hit.Document
		results[i] = map[string]interface{}{
			"rank":       hit.Rank,
			"id":         doc.ID,
			"title":      doc.Title,
			"authors":    doc.Authors,
			"year":       doc.Year(),
			"abstract":   doc.Abstract,
			"url":        doc.LinkOrDefault(),
			"score":      searcher.RoundScore(hit.Score),
			"highlights": nonNilSpans(hit.Highlights),
		}
	}

	response := map[string]interface{}{
		"query":         query,
		"policy":        string(resp.Policy),
		"results":       results,
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCompareText handles the compare_text tool invocation
func (s *Server) handleCompareText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing",
		})
	}

	paperText, ok := args["paper_text"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "paper_text parameter is required", map[string]interface{}{
			"param":  "paper_text",
			"reason": "missing",
		})
	}

	result := s.searcher.Compare(query, paperText)

	response := map[string]interface{}{
		"userHighlights":  nonNilSpans(result.UserHighlights),
		"paperHighlights": nonNilSpans(result.PaperHighlights),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestCorpus handles the ingest_corpus tool invocation
func (s *Server) handleIngestCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validateFile(path); err != nil {
		return nil, pathError("path", err)
	}

	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIngestInProgress, "ingest in progress", map[string]interface{}{
			"path": path,
		})
	}
	defer s.lock.Release()

	ingestCfg := s.ingest
	ingestCfg.Source = path
	stats, err := s.indexer.IngestFile(ctx, path, &ingestCfg)
	if err != nil {
		code := ErrorCodeInternalError
		if errors.Is(err, types.ErrMissingID) {
			code = ErrorCodeInvalidParams
		}
		return nil, newMCPError(code, "ingest failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Cached results may reference stale documents
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"ingested":    true,
		"run_id":      stats.RunID,
		"records":     stats.Records,
		"indexed":     stats.Indexed,
		"batches":     stats.Batches,
		"provider":    stats.Provider,
		"model":       stats.Model,
		"dimension":   stats.Dimension,
		"duration_ms": stats.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleEvaluateRetrieval handles the evaluate_retrieval tool invocation
func (s *Server) handleEvaluateRetrieval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	paths := make(map[string]string, 2)
	for _, key := range []string{"positive_path", "augmented_path"} {
		p, ok := args[key].(string)
		if !ok || p == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
				"param":  key,
				"reason": "missing or empty",
			})
		}
		if err := validateFile(p); err != nil {
			return nil, pathError(key, err)
		}
		paths[key] = p
	}

	maxLevel := getIntDefault(args, "max_level", s.eval.MaxLevel)
	if maxLevel < eval.MinLevel || maxLevel > eval.MaxLevel {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_level must be between 1 and 5", map[string]interface{}{
			"param": "max_level",
			"value": maxLevel,
		})
	}
	limit := getIntDefault(args, "limit", s.eval.Limit)
	if limit < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be >= 1", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	maxTasks := getIntDefault(args, "max_tasks", 0)

	tasks, err := eval.LoadTasks(paths["positive_path"], paths["augmented_path"], s.logger)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load evaluation tasks", map[string]interface{}{
			"error": err.Error(),
		})
	}

	retriever, err := s.searcher.EvalRetriever(s.eval.Policy, s.eval.Params)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "invalid evaluation policy", map[string]interface{}{
			"error": err.Error(),
		})
	}

	runner, err := eval.NewRunner(retriever,
		eval.WithMaxLevel(maxLevel),
		eval.WithLimit(limit),
		eval.WithMaxTasks(maxTasks),
		eval.WithConcurrency(s.eval.Concurrency),
		eval.WithLogger(s.logger),
	)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to create evaluation runner", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer runner.Release()

	records, err := runner.RunAll(ctx, tasks)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "evaluation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if records == nil {
		records = []types.MetricRecord{}
	}

	response := map[string]interface{}{
		"policy":  string(s.eval.Policy),
		"summary": eval.Summarize(records),
		"records": records,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.index.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":            status.Documents > 0,
		"ingest_in_progress": s.lock.Held(),
		"status":             status,
		"cached_queries":     s.searcher.CacheLen(),
	}
	if status.Documents == 0 {
		response["message"] = "Index is empty. Use ingest_corpus to index a JSONL corpus."
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// pathError maps a file validation failure to an MCP error
func pathError(param string, err error) error {
	code := ErrorCodeInvalidParams
	if errors.Is(err, ErrPathNotFound) {
		code = ErrorCodeFileNotFound
	}
	return newMCPError(code, "invalid "+param, map[string]interface{}{
		"param":  param,
		"reason": err.Error(),
	})
}

// validateFile checks that path is an absolute, readable regular file
func validateFile(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if info.IsDir() {
		return ErrIsDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// nonNilSpans keeps empty highlight lists encoding as [] instead of null
func nonNilSpans(spans []types.HighlightSpan) []types.HighlightSpan {
	if spans == nil {
		return []types.HighlightSpan{}
	}
	return spans
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrIsDirectory     = errors.New("path is a directory, expected a JSONL file")
)
