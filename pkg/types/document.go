package types

import (
	"strconv"
	"strings"
)

// ArxivAbsBase is the fallback URL prefix for documents ingested without a link
const ArxivAbsBase = "https://arxiv.org/abs/"

// Document is an ingested paper abstract
type Document struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Abstract  string   `json:"abstract"`
	URL       string   `json:"url"`
	Timestamp string   `json:"timestamp"`
}

// Year returns the publication year taken from the timestamp, or "" when unknown
func (d *Document) Year() string {
	if len(d.Timestamp) < 4 {
		return ""
	}
	y := d.Timestamp[:4]
	if _, err := strconv.Atoi(y); err != nil {
		return ""
	}
	return y
}

// LinkOrDefault returns the document URL, falling back to its arXiv abstract page
func (d *Document) LinkOrDefault() string {
	if d.URL != "" {
		return d.URL
	}
	return ArxivAbsBase + d.ID
}

// Validate checks the document can be used as a join key downstream
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrMissingID
	}
	return nil
}

// SplitAuthors splits a ", "-joined author string into an ordered list
func SplitAuthors(author string) []string {
	if strings.TrimSpace(author) == "" {
		return []string{}
	}
	parts := strings.Split(author, ", ")
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

// SparseDimension is the size of the sparse term vocabulary (the BGE-M3 tokenizer's)
const SparseDimension = 250002

// SparseVector maps a term identifier to its weight
type SparseVector map[uint32]float32

// Dot returns the inner product over shared terms
func (v SparseVector) Dot(other SparseVector) float64 {
	small, large := v, other
	if len(small) > len(large) {
		small, large = large, small
	}
	var sum float64
	for term, w := range small {
		if ow, ok := large[term]; ok {
			sum += float64(w) * float64(ow)
		}
	}
	return sum
}
