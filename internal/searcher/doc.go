// Package searcher runs the online literature search path.
//
// A query is embedded once, then the dense and sparse sub-searches run
// concurrently against the index. Their candidate lists are fused (sparse
// as list A, dense as list B), hydrated into documents and highlighted
// against each abstract.
//
// # Basic Usage
//
//	s, err := searcher.New(index, emb, searcher.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: "graph neural networks for molecules",
//	    TopK:  5,
//	})
//	for _, hit := range resp.Hits {
//	    fmt.Printf("[%d] %s (%.4f)\n", hit.Rank, hit.Document.Title, hit.Score)
//	}
//
// # Fusion
//
// Online search defaults to reciprocal rank fusion with k=60. Offline
// evaluation uses EvalRetriever with its own policy, usually weighted
// 0.5/0.5.
//
// # Compare
//
// Compare highlights the shared tokens of a query and a paper text:
//
//	res, _ := s.Compare(query, abstract)
//	// res.UserHighlights index into query
//	// res.PaperHighlights index into abstract
//
// # Caching
//
// Responses can be cached in an LRU keyed by query, top K and fusion
// settings. Call InvalidateCache after ingesting new documents.
package searcher
