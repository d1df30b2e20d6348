package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnicodeTokenize(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		lower bool
		want  []Token
	}{
		{
			name: "empty",
			text: "",
			want: []Token{},
		},
		{
			name: "words and punctuation",
			text: "Dense, sparse!",
			want: []Token{
				{Surface: "Dense", Start: 0, End: 5},
				{Surface: ",", Start: 5, End: 6},
				{Surface: "sparse", Start: 7, End: 13},
				{Surface: "!", Start: 13, End: 14},
			},
		},
		{
			name:  "lowercase keeps offsets",
			text:  "  BERT model",
			lower: true,
			want: []Token{
				{Surface: "bert", Start: 2, End: 6},
				{Surface: "model", Start: 7, End: 12},
			},
		},
		{
			name: "rune offsets for multibyte text",
			text: "café über",
			want: []Token{
				{Surface: "café", Start: 0, End: 4},
				{Surface: "über", Start: 5, End: 9},
			},
		},
		{
			name: "digits join words",
			text: "GPT4 x-2",
			want: []Token{
				{Surface: "GPT4", Start: 0, End: 4},
				{Surface: "x", Start: 5, End: 6},
				{Surface: "-", Start: 6, End: 7},
				{Surface: "2", Start: 7, End: 8},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewUnicode(WithLowercase(tt.lower))
			got := tok.Tokenize(tt.text)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSurfaces(t *testing.T) {
	set := Surfaces(NewUnicode(), "a b a")
	assert.Len(t, set, 2)
	assert.Contains(t, set, "a")
	assert.Contains(t, set, "b")
}
