// Package mcp implements the Model Context Protocol (MCP) server for litsearch.
//
// The server exposes five tools to MCP clients:
//   - search_papers: fused dense and sparse search with highlights
//   - compare_text: shared-token highlights between a query and a paper text
//   - ingest_corpus: embed and index a JSONL corpus file
//   - evaluate_retrieval: precision, recall, NDCG and MRR against graded variants
//   - get_status: index statistics and the last ingest run
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries protocol messages only, so the CLI sends logs to stderr.
//
// # Basic Usage
//
// The server does not construct its services. The caller opens the index
// and embedder, builds the indexer and searcher, and closes them after
// Serve returns:
//
//	srv, err := mcp.NewServer(mcp.Config{
//	    Index:    idx,
//	    Indexer:  indexer.New(idx, emb, logger),
//	    Searcher: srch,
//	    Logger:   logger,
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Serve(ctx)
//
// # Tool: search_papers
//
//	Request:
//	{
//	  "name": "search_papers",
//	  "arguments": {"query": "graph neural networks", "top_k": 5, "policy": "rrf"}
//	}
//
//	Response:
//	{
//	  "policy": "rrf",
//	  "results": [
//	    {
//	      "rank": 1,
//	      "id": "2101.00001",
//	      "title": "GNNs for chemistry",
//	      "authors": ["A. Author"],
//	      "year": "2021",
//	      "score": 0.0328,
//	      "url": "https://arxiv.org/abs/2101.00001",
//	      "highlights": [{"start": 9, "end": 30, "category": "concept"}]
//	    }
//	  ],
//	  "total_results": 1
//	}
//
// top_k defaults to 5 and must be between 1 and 100. Without a policy the
// searcher's configured default applies.
//
// # Tool: compare_text
//
// userHighlights index into the query and paperHighlights into paper_text.
// An empty query is not an error; both lists come back empty.
//
// # Tool: ingest_corpus
//
// Only one ingest runs at a time. A concurrent call fails with
// ErrorCodeIngestInProgress rather than queueing. A record with an empty id
// aborts the ingest before anything is written.
//
// # Tool: evaluate_retrieval
//
// Tasks pair each positive record with the augmented records named
// <id>_level<N>. Retrieval uses the evaluation policy from EvalConfig,
// weighted 0.5/0.5 unless configured otherwise.
//
// # Error Handling
//
// Handlers return *MCPError with a JSON-RPC code:
//
//	-32602  Invalid parameters
//	-32603  Internal error
//	-32001  File not found
//	-32002  Ingest in progress
//	-32004  Empty query
package mcp
