// Package tokenizer splits text into tokens with character offsets.
//
// Offsets are rune (code point) offsets into the original text, so a span
// [Start, End) can be cut out with []rune(text)[Start:End].
package tokenizer

import (
	"strings"
	"unicode"
)

// Token is a token surface and its half-open rune interval in the source text
type Token struct {
	Surface string
	Start   int
	End     int
}

// Tokenizer produces tokens with offsets. Implementations never emit sentinel
// (start/end marker) tokens.
type Tokenizer interface {
	Tokenize(text string) []Token
}

// Unicode is a word/punctuation tokenizer.
// A token is a maximal run of letters, digits and combining marks, or a single
// punctuation/symbol rune. Whitespace separates tokens and is never emitted.
type Unicode struct {
	lowercase bool
}

// Option configures a Unicode tokenizer
type Option func(*Unicode)

// WithLowercase folds token surfaces to lower case; offsets are unaffected
func WithLowercase(enabled bool) Option {
	return func(u *Unicode) {
		u.lowercase = enabled
	}
}

// NewUnicode creates a Unicode tokenizer
func NewUnicode(opts ...Option) *Unicode {
	u := &Unicode{}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Tokenize splits text into tokens
func (u *Unicode) Tokenize(text string) []Token {
	if text == "" {
		return []Token{}
	}

	runes := []rune(text)
	tokens := make([]Token, 0, len(runes)/5+1)

	start := -1
	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, u.token(runes, start, end))
			start = -1
		}
	}

	for i, r := range runes {
		switch {
		case isWordRune(r):
			if start < 0 {
				start = i
			}
		case unicode.IsSpace(r):
			flush(i)
		default:
			flush(i)
			tokens = append(tokens, u.token(runes, i, i+1))
		}
	}
	flush(len(runes))

	return tokens
}

func (u *Unicode) token(runes []rune, start, end int) Token {
	surface := string(runes[start:end])
	if u.lowercase {
		surface = strings.ToLower(surface)
	}
	return Token{Surface: surface, Start: start, End: end}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// Surfaces returns the distinct token surfaces of text
func Surfaces(t Tokenizer, text string) map[string]struct{} {
	tokens := t.Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok.Surface] = struct{}{}
	}
	return set
}
