// Package types provides shared type definitions for litsearch.
//
// The types here are passed between the retrieval core (fusion, highlighting,
// evaluation) and its collaborators (embedder, index, API surfaces).
//
// # Documents
//
// Document is an immutable paper record owned by the index:
//
//	doc := types.Document{
//	    ID:        "2301.01234",
//	    Title:     "Sparse Retrieval Revisited",
//	    Authors:   types.SplitAuthors("A. Author, B. Author"),
//	    Timestamp: "2023-01-04T18:00:00Z",
//	}
//	doc.Year()          // "2023"
//	doc.LinkOrDefault() // "https://arxiv.org/abs/2301.01234" when URL is empty
//
// # Rankings
//
// ScoredCandidate is one entry of a sub-search list (dense or sparse) with a
// 0-based rank. FusedHit is one entry of the fused ranking.
//
// # Highlights
//
// HighlightSpan is a half-open [Start, End) interval of rune offsets. Only
// CategoryConcept is assigned; CategoryMethodology is reserved.
//
// # Evaluation
//
// EvaluationTask and MetricRecord carry the offline evaluation inputs and
// outputs. Ground-truth ids encode a difficulty level as "<base>_level<N>".
package types
