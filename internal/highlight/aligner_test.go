package highlight

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/litsearch/internal/tokenizer"
	"github.com/dshills/litsearch/pkg/types"
)

func span(start, end int) types.HighlightSpan {
	return types.HighlightSpan{Start: start, End: end, Category: types.CategoryConcept}
}

func TestMergeSpans(t *testing.T) {
	tests := []struct {
		name  string
		input []types.HighlightSpan
		want  []types.HighlightSpan
	}{
		{
			name:  "empty",
			input: nil,
			want:  []types.HighlightSpan{},
		},
		{
			name:  "touching spans merge",
			input: []types.HighlightSpan{{Start: 0, End: 5}, {Start: 5, End: 9}},
			want:  []types.HighlightSpan{span(0, 9)},
		},
		{
			name:  "gap keeps spans apart",
			input: []types.HighlightSpan{{Start: 0, End: 5}, {Start: 6, End: 9}},
			want:  []types.HighlightSpan{span(0, 5), span(6, 9)},
		},
		{
			name:  "unsorted overlapping input",
			input: []types.HighlightSpan{{Start: 10, End: 12}, {Start: 2, End: 8}, {Start: 3, End: 4}},
			want:  []types.HighlightSpan{span(2, 8), span(10, 12)},
		},
		{
			name:  "contained span does not shrink end",
			input: []types.HighlightSpan{{Start: 0, End: 10}, {Start: 2, End: 3}},
			want:  []types.HighlightSpan{span(0, 10)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeSpans(tt.input))
		})
	}
}

func TestMergeSpansInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		n := rng.Intn(20)
		input := make([]types.HighlightSpan, n)
		for i := range input {
			start := rng.Intn(100)
			input[i] = types.HighlightSpan{Start: start, End: start + rng.Intn(6)}
		}

		merged := MergeSpans(input)
		for i := 1; i < len(merged); i++ {
			require.Greater(t, merged[i].Start, merged[i-1].End, "round %d", round)
		}
		for _, s := range merged {
			require.Equal(t, types.CategoryConcept, s.Category)
		}
	}
}

func TestAlign(t *testing.T) {
	a := NewAligner(tokenizer.NewUnicode())

	t.Run("empty inputs", func(t *testing.T) {
		assert.Empty(t, a.Align("", "document text"))
		assert.Empty(t, a.Align("query", ""))
		assert.NotNil(t, a.Align("", ""))
	})

	t.Run("whitespace gap keeps matches apart", func(t *testing.T) {
		// "sparse" (10,16), " " gap, "retrieval" (17,26)
		spans := a.Align("retrieval sparse", "Dense and sparse retrieval models")
		assert.Equal(t, []types.HighlightSpan{span(10, 16), span(17, 26)}, spans)
	})

	t.Run("touching tokens merge", func(t *testing.T) {
		spans := a.Align("state - of", "state-of-the-art")
		assert.Equal(t, []types.HighlightSpan{span(0, 9), span(12, 13)}, spans)
	})

	t.Run("token identity not position", func(t *testing.T) {
		spans := a.Align("b a", "a x a x b")
		assert.Equal(t, []types.HighlightSpan{span(0, 1), span(4, 5), span(8, 9)}, spans)
	})

	t.Run("case sensitive by default", func(t *testing.T) {
		assert.Empty(t, a.Align("BERT", "bert"))
		lower := NewAligner(tokenizer.NewUnicode(tokenizer.WithLowercase(true)))
		assert.Equal(t, []types.HighlightSpan{span(0, 4)}, lower.Align("BERT", "bert"))
	})
}

func TestAlignAll(t *testing.T) {
	a := NewAligner(tokenizer.NewUnicode())
	out := a.AlignAll("graph", []string{"graph neural", "no match", ""})
	require.Len(t, out, 3)
	assert.Equal(t, []types.HighlightSpan{span(0, 5)}, out[0])
	assert.Empty(t, out[1])
	assert.Empty(t, out[2])
}

func TestRender(t *testing.T) {
	text := "Dense and sparse retrieval"
	spans := []types.HighlightSpan{span(0, 5), span(10, 16)}

	got := Render(text, spans, DefaultMarker())
	assert.Equal(t, "<span style='color:red'>Dense</span> and <span style='color:red'>sparse</span> retrieval", got)

	assert.Equal(t, text, Render(text, nil, DefaultMarker()))

	multibyte := Render("über alles", []types.HighlightSpan{span(0, 4)}, Marker{Open: "[", Close: "]"})
	assert.Equal(t, "[über] alles", multibyte)

	clamped := Render("abc", []types.HighlightSpan{span(1, 10)}, Marker{Open: "<", Close: ">"})
	assert.Equal(t, "a<bc>", clamped)
}
