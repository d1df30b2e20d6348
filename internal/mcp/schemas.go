package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchPapersTool returns the tool definition for search_papers
func searchPapersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_papers",
		Description: "Search indexed papers with a free-text query using fused dense and sparse retrieval",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query, usually a sentence or abstract fragment",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     5,
					"minimum":     1,
					"maximum":     100,
				},
				"policy": map[string]interface{}{
					"type":        "string",
					"description": "Fusion policy: rrf (reciprocal rank) or weighted (score sum)",
					"enum":        []string{"rrf", "weighted"},
				},
			},
			Required: []string{"query"},
		},
	}
}

// compareTextTool returns the tool definition for compare_text
func compareTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "compare_text",
		Description: "Highlight the tokens a query and a paper text have in common",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "User text; userHighlights index into it",
				},
				"paper_text": map[string]interface{}{
					"type":        "string",
					"description": "Paper text; paperHighlights index into it",
				},
			},
			Required: []string{"query", "paper_text"},
		},
	}
}

// ingestCorpusTool returns the tool definition for ingest_corpus
func ingestCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_corpus",
		Description: "Embed and index a JSONL corpus file of paper records",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a JSONL file with {id, title, author, link, time, abstract} records",
				},
			},
			Required: []string{"path"},
		},
	}
}

// evaluateRetrievalTool returns the tool definition for evaluate_retrieval
func evaluateRetrievalTool() mcp.Tool {
	return mcp.Tool{
		Name:        "evaluate_retrieval",
		Description: "Score retrieval against graded ground truth (precision, recall, NDCG, MRR)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"positive_path": map[string]interface{}{
					"type":        "string",
					"description": "JSONL file of query papers",
				},
				"augmented_path": map[string]interface{}{
					"type":        "string",
					"description": "JSONL file of graded variants (<id>_level<N>)",
				},
				"max_level": map[string]interface{}{
					"type":        "integer",
					"description": "Highest relevance level kept as ground truth (1-5)",
					"default":     4,
					"minimum":     1,
					"maximum":     5,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Results retrieved per query",
					"default":     10,
					"minimum":     1,
				},
				"max_tasks": map[string]interface{}{
					"type":        "integer",
					"description": "Evaluate at most this many queries (0 means all)",
					"default":     0,
					"minimum":     0,
				},
			},
			Required: []string{"positive_path", "augmented_path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics, schema version and the last ingest run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
