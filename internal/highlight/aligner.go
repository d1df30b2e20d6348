package highlight

import (
	"sort"
	"strings"

	"github.com/dshills/litsearch/internal/tokenizer"
	"github.com/dshills/litsearch/pkg/types"
)

// Default markers used by Render
const (
	DefaultOpenMarker  = "<span style='color:red'>"
	DefaultCloseMarker = "</span>"
)

// Marker wraps highlighted substrings in Render
type Marker struct {
	Open  string
	Close string
}

// DefaultMarker returns the HTML marker used by the web frontend
func DefaultMarker() Marker {
	return Marker{Open: DefaultOpenMarker, Close: DefaultCloseMarker}
}

// Aligner computes highlight spans by token identity
type Aligner struct {
	tokenizer tokenizer.Tokenizer
}

// NewAligner creates an Aligner over the given tokenizer
func NewAligner(t tokenizer.Tokenizer) *Aligner {
	return &Aligner{tokenizer: t}
}

// Align returns the merged spans of documentText whose token surfaces occur
// anywhere in queryText. Matching is by surface identity, not by position.
func (a *Aligner) Align(queryText, documentText string) []types.HighlightSpan {
	if queryText == "" || documentText == "" {
		return []types.HighlightSpan{}
	}

	querySet := tokenizer.Surfaces(a.tokenizer, queryText)

	candidates := make([]types.HighlightSpan, 0)
	for _, tok := range a.tokenizer.Tokenize(documentText) {
		if _, ok := querySet[tok.Surface]; ok {
			candidates = append(candidates, types.HighlightSpan{Start: tok.Start, End: tok.End})
		}
	}

	return MergeSpans(candidates)
}

// AlignAll aligns one query against several documents
func (a *Aligner) AlignAll(queryText string, documents []string) [][]types.HighlightSpan {
	out := make([][]types.HighlightSpan, len(documents))
	for i, doc := range documents {
		out[i] = a.Align(queryText, doc)
	}
	return out
}

// MergeSpans sorts spans by start and merges every span that starts at or
// before the end of the running span. Touching spans ((0,5) and (5,9)) merge.
// Every merged span is tagged CategoryConcept. The input is not modified.
func MergeSpans(spans []types.HighlightSpan) []types.HighlightSpan {
	merged := make([]types.HighlightSpan, 0, len(spans))
	if len(spans) == 0 {
		return merged
	}

	sorted := make([]types.HighlightSpan, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	for _, s := range sorted {
		if n := len(merged); n > 0 && s.Start <= merged[n-1].End {
			if s.End > merged[n-1].End {
				merged[n-1].End = s.End
			}
			continue
		}
		merged = append(merged, types.HighlightSpan{
			Start:    s.Start,
			End:      s.End,
			Category: types.CategoryConcept,
		})
	}

	return merged
}

// Render wraps each span of text in the marker. Spans must be merged (sorted,
// non-overlapping); offsets are rune offsets and are clamped to the text.
func Render(text string, spans []types.HighlightSpan, m Marker) string {
	if len(spans) == 0 {
		return text
	}

	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text) + len(spans)*(len(m.Open)+len(m.Close)))

	last := 0
	for _, s := range spans {
		start, end := clamp(s.Start, len(runes)), clamp(s.End, len(runes))
		if start < last {
			start = last
		}
		if end <= start {
			continue
		}
		b.WriteString(string(runes[last:start]))
		b.WriteString(m.Open)
		b.WriteString(string(runes[start:end]))
		b.WriteString(m.Close)
		last = end
	}
	b.WriteString(string(runes[last:]))

	return b.String()
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}
