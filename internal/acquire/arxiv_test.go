package acquire

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/litsearch/internal/corpus"
	"github.com/dshills/litsearch/internal/retry"
)

const atomEntry = `
  <entry>
    <id>http://arxiv.org/abs/%[1]s</id>
    <updated>2022-01-0%[2]dT10:00:00Z</updated>
    <published>2022-01-0%[2]dT10:00:00Z</published>
    <title>Paper %[1]s</title>
    <summary>Abstract of %[1]s.</summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/%[1]s" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/%[1]s" rel="related" type="application/pdf"/>
  </entry>`

func atomFeed(ids ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query</title>
  <id>http://arxiv.org/api/test</id>
  <updated>2022-01-01T00:00:00Z</updated>`)
	for i, id := range ids {
		fmt.Fprintf(&b, atomEntry, id, i+1)
	}
	b.WriteString("\n</feed>\n")
	return b.String()
}

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestFetch(t *testing.T) {
	var mu sync.Mutex
	var starts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mu.Lock()
		starts = append(starts, q.Get("start"))
		mu.Unlock()
		assert.Equal(t, "2", q.Get("max_results"))
		assert.Equal(t, "cat:cs.CL", q.Get("search_query"))

		w.Header().Set("Content-Type", "application/atom+xml")
		switch q.Get("start") {
		case "0":
			_, _ = w.Write([]byte(atomFeed("2201.00001v1", "2201.00002v2")))
		default:
			_, _ = w.Write([]byte(atomFeed("2201.00003v1")))
		}
	}))
	defer server.Close()

	f := NewFetcher(WithBaseURL(server.URL), WithPageSize(2), WithWait(0), WithRetry(fastRetry()))

	var buf bytes.Buffer
	w := corpus.NewWriter(&buf)
	n, err := f.Fetch(context.Background(), "cat:cs.CL", 0, 4, w)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	mu.Lock()
	assert.Equal(t, []string{"0", "2"}, starts)
	mu.Unlock()

	records, err := corpus.Read(&buf, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, records, 3)

	rec := records[0]
	assert.Equal(t, "2201.00001v1", rec.ID)
	assert.Equal(t, "Paper 2201.00001v1", rec.Title)
	assert.Equal(t, "Ada Lovelace, Alan Turing", rec.Author)
	assert.Equal(t, "http://arxiv.org/abs/2201.00001v1", rec.Link)
	assert.Equal(t, "2022-01-01T10:00:00Z", rec.Time)
	assert.Equal(t, "Abstract of 2201.00001v1.", rec.Abstract)
}

func TestFetchStopsOnEmptyPage(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(atomFeed()))
	}))
	defer server.Close()

	f := NewFetcher(WithBaseURL(server.URL), WithPageSize(10), WithWait(0))
	n, err := f.Fetch(context.Background(), "all:graphs", 0, 100, corpus.NewWriter(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchFailingPageKeepsRecords(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("start") == "0" {
			_, _ = w.Write([]byte(atomFeed("a1", "a2")))
			return
		}
		http.Error(w, "malformed query", http.StatusBadRequest)
	}))
	defer server.Close()

	f := NewFetcher(WithBaseURL(server.URL), WithPageSize(2), WithWait(0), WithRetry(fastRetry()))

	var buf bytes.Buffer
	n, err := f.Fetch(context.Background(), "q", 0, 6, corpus.NewWriter(&buf))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed query")
	assert.Equal(t, 2, n)
	// 4xx is not retried
	assert.Equal(t, int32(2), calls.Load())

	records, err := corpus.Read(&buf, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(atomFeed("b1")))
	}))
	defer server.Close()

	f := NewFetcher(WithBaseURL(server.URL), WithPageSize(5), WithWait(0), WithRetry(fastRetry()))
	n, err := f.Fetch(context.Background(), "q", 0, 5, corpus.NewWriter(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchWaitHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(atomFeed("c1")))
	}))
	defer server.Close()

	f := NewFetcher(WithBaseURL(server.URL), WithPageSize(1), WithWait(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	n, err := f.Fetch(ctx, "q", 0, 3, corpus.NewWriter(&bytes.Buffer{}))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, n)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchValidation(t *testing.T) {
	f := NewFetcher()
	w := corpus.NewWriter(&bytes.Buffer{})

	_, err := f.Fetch(context.Background(), "", 0, 10, w)
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), "q", 10, 10, w)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestArxivID(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"http://arxiv.org/abs/2201.00001v1", "2201.00001v1"},
		{"https://arxiv.org/abs/2201.00002v3", "2201.00002v3"},
		{"http://arxiv.org/abs/hep-th/9901001v1", "hep-th/9901001v1"},
		{"https://example.org/paper", "https://example.org/paper"},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.want, ArxivID(tt.link))
		})
	}
}
