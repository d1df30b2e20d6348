package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/dshills/litsearch/internal/eval"
	"github.com/dshills/litsearch/internal/fusion"
	"github.com/dshills/litsearch/internal/indexer"
	"github.com/dshills/litsearch/internal/searcher"
	"github.com/dshills/litsearch/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "litsearch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// EvalConfig holds the defaults used by evaluate_retrieval
type EvalConfig struct {
	Policy      fusion.Policy
	Params      fusion.Params
	MaxLevel    int
	Limit       int
	Concurrency int
}

// DefaultEvalConfig mirrors the offline evaluation defaults
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		Policy:      fusion.PolicyWeighted,
		Params:      fusion.Params{WeightA: 0.5, WeightB: 0.5},
		MaxLevel:    eval.DefaultMaxLevel,
		Limit:       eval.DefaultLimit,
		Concurrency: eval.DefaultConcurrency,
	}
}

// Config carries the services the server exposes. The caller owns them and
// closes them after Serve returns.
type Config struct {
	Index    storage.Index
	Indexer  *indexer.Indexer
	Searcher *searcher.Searcher
	Eval     EvalConfig
	Ingest   indexer.Config // Source is set per call
	Logger   zerolog.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	index    storage.Index
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	eval     EvalConfig
	ingest   indexer.Config
	lock     indexer.RunLock
	logger   zerolog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg Config) (*Server, error) {
	if cfg.Index == nil || cfg.Indexer == nil || cfg.Searcher == nil {
		return nil, errors.New("index, indexer and searcher are required")
	}
	if cfg.Eval.Policy == "" {
		cfg.Eval = DefaultEvalConfig()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		index:    cfg.Index,
		indexer:  cfg.Indexer,
		searcher: cfg.Searcher,
		eval:     cfg.Eval,
		ingest:   cfg.Ingest,
		logger:   cfg.Logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info().Str("server", ServerName).Msg("serving MCP on stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(searchPapersTool(), s.handleSearchPapers)
	s.mcp.AddTool(compareTextTool(), s.handleCompareText)
	s.mcp.AddTool(ingestCorpusTool(), s.handleIngestCorpus)
	s.mcp.AddTool(evaluateRetrievalTool(), s.handleEvaluateRetrieval)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	return nil
}
