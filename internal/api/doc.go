// Package api serves search and compare over HTTP with go-restful.
//
// Routes:
//
//	POST /search        {query, topK}        -> {results: [...]}
//	POST /compare       {query, paperText}   -> {userHighlights, paperHighlights}
//	GET  /health                             -> {status, documents}
//	GET  /openapi.json                       OpenAPI document
//
// Errors are written as {"error": "..."} with status 400 for bad input and
// 500 when the index or embedder fails. CORS is applied with rs/cors.
package api
