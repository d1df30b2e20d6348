package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/litsearch/internal/embedder"
	"github.com/dshills/litsearch/internal/indexer"
	"github.com/dshills/litsearch/internal/retry"
	"github.com/dshills/litsearch/internal/searcher"
	"github.com/dshills/litsearch/internal/storage"
)

// setupTestServer wires a server over an in-memory index and the local embedder
func setupTestServer(t *testing.T) *Server {
	ctx := context.Background()

	idx, err := storage.NewSQLiteIndex(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	emb := embedder.NewLocalProvider(32)
	srch, err := searcher.New(idx, emb, searcher.WithRetry(retry.None()))
	require.NoError(t, err)

	s, err := NewServer(Config{
		Index:    idx,
		Indexer:  indexer.New(idx, emb, zerolog.Nop()),
		Searcher: srch,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return s
}

func writeJSONL(t *testing.T, name string, lines ...string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) {
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

const testCorpus = `{"id":"2101.00001","title":"GNNs","author":"A. Author, B. Author","link":"http://arxiv.org/abs/2101.00001","time":"2021-01-01T00:00:00Z","abstract":"We study graph neural networks for molecules."}`

func TestNewServer(t *testing.T) {
	t.Run("requires services", func(t *testing.T) {
		_, err := NewServer(Config{})
		assert.Error(t, err)
	})

	t.Run("fills evaluation defaults", func(t *testing.T) {
		s := setupTestServer(t)
		assert.NotNil(t, s.mcp)
		assert.Equal(t, DefaultEvalConfig(), s.eval)
	})
}

func TestHandleSearchPapersValidation(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing query", map[string]interface{}{}, ErrorCodeEmptyQuery},
		{"blank query", map[string]interface{}{"query": "   "}, ErrorCodeEmptyQuery},
		{"top_k too small", map[string]interface{}{"query": "graphs", "top_k": float64(0)}, ErrorCodeInvalidParams},
		{"top_k too large", map[string]interface{}{"query": "graphs", "top_k": float64(101)}, ErrorCodeInvalidParams},
		{"unknown policy", map[string]interface{}{"query": "graphs", "policy": "borda"}, ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleSearchPapers(ctx, callRequest("search_papers", tt.args))
			requireMCPError(t, err, tt.code)
		})
	}

	t.Run("non-object arguments", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = "query"
		_, err := s.handleSearchPapers(ctx, req)
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestIngestThenSearch(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	path := writeJSONL(t, "corpus.jsonl", testCorpus)

	result, err := s.handleIngestCorpus(ctx, callRequest("ingest_corpus", map[string]interface{}{"path": path}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, true, out["ingested"])
	assert.Equal(t, float64(1), out["indexed"])
	assert.False(t, s.lock.Held(), "lock released after ingest")

	result, err = s.handleSearchPapers(ctx, callRequest("search_papers", map[string]interface{}{
		"query":  "graph neural networks",
		"top_k":  float64(3),
		"policy": "weighted",
	}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	assert.Equal(t, "weighted", out["policy"])

	results, ok := out["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 1)

	hit := results[0].(map[string]interface{})
	assert.Equal(t, "2101.00001", hit["id"])
	assert.Equal(t, "2021", hit["year"])
	assert.Equal(t, []interface{}{"A. Author", "B. Author"}, hit["authors"])
	assert.NotEmpty(t, hit["highlights"])
}

func TestHandleIngestCorpus(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	t.Run("missing path", func(t *testing.T) {
		_, err := s.handleIngestCorpus(ctx, callRequest("ingest_corpus", map[string]interface{}{}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("relative path", func(t *testing.T) {
		_, err := s.handleIngestCorpus(ctx, callRequest("ingest_corpus", map[string]interface{}{"path": "corpus.jsonl"}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("file not found", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing.jsonl")
		_, err := s.handleIngestCorpus(ctx, callRequest("ingest_corpus", map[string]interface{}{"path": missing}))
		requireMCPError(t, err, ErrorCodeFileNotFound)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := s.handleIngestCorpus(ctx, callRequest("ingest_corpus", map[string]interface{}{"path": t.TempDir()}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("empty id aborts", func(t *testing.T) {
		path := writeJSONL(t, "bad.jsonl", testCorpus, `{"id":"","title":"No id","abstract":"text"}`)
		_, err := s.handleIngestCorpus(ctx, callRequest("ingest_corpus", map[string]interface{}{"path": path}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("ingest in progress", func(t *testing.T) {
		path := writeJSONL(t, "corpus.jsonl", testCorpus)
		require.True(t, s.lock.TryAcquire())
		defer s.lock.Release()

		_, err := s.handleIngestCorpus(ctx, callRequest("ingest_corpus", map[string]interface{}{"path": path}))
		requireMCPError(t, err, ErrorCodeIngestInProgress)
		assert.Contains(t, err.Error(), "ingest in progress")
	})
}

func TestHandleCompareText(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	result, err := s.handleCompareText(ctx, callRequest("compare_text", map[string]interface{}{
		"query":      "graph",
		"paper_text": "We study graph",
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)

	user := out["userHighlights"].([]interface{})
	require.Len(t, user, 1)
	assert.Equal(t, float64(0), user[0].(map[string]interface{})["start"])
	assert.Equal(t, float64(5), user[0].(map[string]interface{})["end"])

	paper := out["paperHighlights"].([]interface{})
	require.Len(t, paper, 1)
	assert.Equal(t, float64(9), paper[0].(map[string]interface{})["start"])
	assert.Equal(t, float64(14), paper[0].(map[string]interface{})["end"])

	t.Run("no overlap yields empty lists", func(t *testing.T) {
		result, err := s.handleCompareText(ctx, callRequest("compare_text", map[string]interface{}{
			"query":      "bandits",
			"paper_text": "speech recognition",
		}))
		require.NoError(t, err)
		out := decodeResult(t, result)
		assert.Equal(t, []interface{}{}, out["userHighlights"])
		assert.Equal(t, []interface{}{}, out["paperHighlights"])
	})

	t.Run("empty query yields empty lists", func(t *testing.T) {
		result, err := s.handleCompareText(ctx, callRequest("compare_text", map[string]interface{}{
			"query":      "",
			"paper_text": "graph neural networks",
		}))
		require.NoError(t, err)
		out := decodeResult(t, result)
		assert.Equal(t, []interface{}{}, out["userHighlights"])
		assert.Equal(t, []interface{}{}, out["paperHighlights"])
	})

	t.Run("validation", func(t *testing.T) {
		_, err := s.handleCompareText(ctx, callRequest("compare_text", map[string]interface{}{"paper_text": "x"}))
		requireMCPError(t, err, ErrorCodeInvalidParams)

		_, err = s.handleCompareText(ctx, callRequest("compare_text", map[string]interface{}{"query": "x"}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestHandleEvaluateRetrieval(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	augmented := writeJSONL(t, "augmented.jsonl",
		`{"id":"p1_level1","title":"v1","abstract":"Graph neural networks predict molecular properties."}`,
		`{"id":"p1_level2","title":"v2","abstract":"Neural networks on molecular graphs."}`,
	)
	positive := writeJSONL(t, "positive.jsonl",
		`{"id":"p1","title":"q","abstract":"Graph neural networks for molecular property prediction."}`,
	)

	_, err := s.handleIngestCorpus(ctx, callRequest("ingest_corpus", map[string]interface{}{"path": augmented}))
	require.NoError(t, err)

	result, err := s.handleEvaluateRetrieval(ctx, callRequest("evaluate_retrieval", map[string]interface{}{
		"positive_path":  positive,
		"augmented_path": augmented,
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)

	assert.Equal(t, "weighted", out["policy"])
	summary := out["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["tasks"])
	assert.Equal(t, float64(1), summary["evaluated"])
	assert.InDelta(t, 1.0, summary["mean_recall_at_k"], 1e-9)

	records := out["records"].([]interface{})
	require.Len(t, records, 1)
	assert.Equal(t, "p1", records[0].(map[string]interface{})["query_id"])

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			args map[string]interface{}
			code int
		}{
			{"missing positive", map[string]interface{}{"augmented_path": augmented}, ErrorCodeInvalidParams},
			{"missing file", map[string]interface{}{"positive_path": positive, "augmented_path": filepath.Join(t.TempDir(), "nope.jsonl")}, ErrorCodeFileNotFound},
			{"max_level out of range", map[string]interface{}{"positive_path": positive, "augmented_path": augmented, "max_level": float64(6)}, ErrorCodeInvalidParams},
			{"zero limit", map[string]interface{}{"positive_path": positive, "augmented_path": augmented, "limit": float64(0)}, ErrorCodeInvalidParams},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := s.handleEvaluateRetrieval(ctx, callRequest("evaluate_retrieval", tt.args))
				requireMCPError(t, err, tt.code)
			})
		}
	})
}

func TestHandleGetStatus(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	result, err := s.handleGetStatus(ctx, callRequest("get_status", nil))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, false, out["indexed"])
	assert.Contains(t, out, "message")

	path := writeJSONL(t, "corpus.jsonl", testCorpus)
	_, err = s.handleIngestCorpus(ctx, callRequest("ingest_corpus", map[string]interface{}{"path": path}))
	require.NoError(t, err)

	result, err = s.handleGetStatus(ctx, callRequest("get_status", nil))
	require.NoError(t, err)
	out = decodeResult(t, result)
	assert.Equal(t, true, out["indexed"])
	assert.Equal(t, false, out["ingest_in_progress"])

	status := out["status"].(map[string]interface{})
	assert.Equal(t, float64(1), status["documents"])
	assert.Equal(t, storage.BackendSQLite, status["backend"])
	assert.NotNil(t, status["last_ingest"])
}
