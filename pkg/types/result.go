package types

// ScoredCandidate is one entry of a single sub-search result list
type ScoredCandidate struct {
	ID    string
	Score float64
	Rank  int // Position in the sub-list (0-based)
}

// FusedHit is one entry of a fused ranking
type FusedHit struct {
	ID         string
	FusedScore float64
}

// Category tags a highlight span
type Category string

const (
	CategoryConcept Category = "concept"
	// CategoryMethodology is reserved; nothing assigns it yet.
	CategoryMethodology Category = "methodology"
)

// HighlightSpan is a half-open [Start, End) interval of rune offsets over a text
type HighlightSpan struct {
	Start    int      `json:"start" yaml:"start"`
	End      int      `json:"end" yaml:"end"`
	Category Category `json:"category" yaml:"category"`
}

// Validate checks the span bounds
func (s HighlightSpan) Validate() error {
	if s.Start < 0 || s.End < s.Start {
		return ErrInvalidSpan
	}
	return nil
}
