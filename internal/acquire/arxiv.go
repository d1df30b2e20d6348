package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/dshills/litsearch/internal/corpus"
	"github.com/dshills/litsearch/internal/retry"
)

// arXiv API defaults
const (
	DefaultBaseURL  = "http://export.arxiv.org/api/query"
	DefaultPageSize = 50
	DefaultWait     = 5 * time.Second
	DefaultTimeout  = 30 * time.Second
)

// ErrInvalidRange is returned when the requested page window is empty
var ErrInvalidRange = errors.New("invalid fetch range")

var absPrefixes = []string{"http://arxiv.org/abs/", "https://arxiv.org/abs/"}

// Fetcher pages the arXiv Atom API and writes one corpus record per entry
type Fetcher struct {
	client   *http.Client
	baseURL  string
	pageSize int
	wait     time.Duration
	retry    retry.Policy
	parser   *gofeed.Parser
	logger   zerolog.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithBaseURL overrides the API endpoint
func WithBaseURL(u string) Option {
	return func(f *Fetcher) { f.baseURL = strings.TrimRight(u, "?") }
}

// WithPageSize sets max_results per request
func WithPageSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// WithWait sets the pause between pages
func WithWait(d time.Duration) Option {
	return func(f *Fetcher) { f.wait = d }
}

// WithRetry sets the retry policy for page requests
func WithRetry(p retry.Policy) Option {
	return func(f *Fetcher) { f.retry = p }
}

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// NewFetcher creates a Fetcher with arXiv defaults
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: DefaultTimeout},
		baseURL:  DefaultBaseURL,
		pageSize: DefaultPageSize,
		wait:     DefaultWait,
		retry:    retry.Default(),
		parser:   gofeed.NewParser(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch requests results start, start+pageSize, ... up to (not including)
// end and writes each entry to w. It stops at the first failing page or an
// empty page, keeping what was already written. It returns the number of
// records written.
func (f *Fetcher) Fetch(ctx context.Context, query string, start, end int, w *corpus.Writer) (int, error) {
	if strings.TrimSpace(query) == "" {
		return 0, fmt.Errorf("search query is required")
	}
	if start < 0 || end <= start {
		return 0, fmt.Errorf("%w: start=%d end=%d", ErrInvalidRange, start, end)
	}

	written := 0
	for i := start; i < end; i += f.pageSize {
		feed, err := retry.Do(ctx, f.retry, func(ctx context.Context) (*gofeed.Feed, error) {
			return f.page(ctx, query, i)
		})
		if err != nil {
			return written, fmt.Errorf("page at %d: %w", i, err)
		}

		for _, item := range feed.Items {
			rec, ok := toRecord(item)
			if !ok {
				f.logger.Warn().Int("start", i).Str("title", item.Title).Msg("skipping entry without link")
				continue
			}
			if err := w.Write(rec); err != nil {
				return written, err
			}
			written++
		}
		if err := w.Flush(); err != nil {
			return written, fmt.Errorf("flush records: %w", err)
		}

		f.logger.Info().Int("start", i).Int("entries", len(feed.Items)).Int("written", written).Msg("fetched page")

		if len(feed.Items) == 0 {
			break
		}

		if i+f.pageSize < end && f.wait > 0 {
			timer := time.NewTimer(f.wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return written, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return written, nil
}

// page fetches and parses one result page
func (f *Fetcher) page(ctx context.Context, query string, start int) (*gofeed.Feed, error) {
	u := fmt.Sprintf("%s?search_query=%s&start=%d&max_results=%d",
		f.baseURL, strings.ReplaceAll(strings.TrimSpace(query), " ", "+"), start, f.pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("arxiv returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// toRecord maps an Atom entry to a corpus record
func toRecord(item *gofeed.Item) (corpus.Record, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return corpus.Record{}, false
	}

	return corpus.Record{
		ID:       ArxivID(link),
		Title:    item.Title,
		Author:   authors(item),
		Link:     link,
		Time:     item.Updated,
		Abstract: item.Description,
	}, true
}

// authors joins entry authors, falling back to the single author
func authors(item *gofeed.Item) string {
	if len(item.Authors) > 0 {
		names := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			if a != nil && a.Name != "" {
				names = append(names, a.Name)
			}
		}
		return strings.Join(names, ", ")
	}
	if item.Author != nil {
		return item.Author.Name
	}
	return ""
}

// ArxivID strips the abstract-page prefix from an arXiv link
func ArxivID(link string) string {
	for _, p := range absPrefixes {
		if strings.HasPrefix(link, p) {
			return strings.TrimPrefix(link, p)
		}
	}
	return link
}
