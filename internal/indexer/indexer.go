package indexer

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/litsearch/internal/corpus"
	"github.com/dshills/litsearch/internal/embedder"
	"github.com/dshills/litsearch/internal/storage"
	"github.com/dshills/litsearch/pkg/types"
)

const (
	// DefaultBatchSize is the number of records embedded and inserted together
	DefaultBatchSize = 30
	// MaxAuthorRunes bounds the stored author string
	MaxAuthorRunes = 500
)

// Indexer coordinates the ingestion pipeline: validate -> embed -> store
type Indexer struct {
	index    storage.Index
	embedder embedder.Embedder
	logger   zerolog.Logger
}

// Config contains configuration for one ingest
type Config struct {
	Workers   int    // Number of concurrent batches (default: runtime.NumCPU())
	BatchSize int    // Records per embed call and transaction (default: 30)
	Source    string // Recorded on the ingest run, usually the corpus path
}

// Statistics contains statistics about the ingest operation
type Statistics struct {
	Records   int           `json:"records"`
	Indexed   int           `json:"indexed"`
	Batches   int           `json:"batches"`
	RunID     int64         `json:"run_id"`
	Duration  time.Duration `json:"duration"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Dimension int           `json:"dimension"`
}

// New creates a new Indexer instance
func New(index storage.Index, emb embedder.Embedder, logger zerolog.Logger) *Indexer {
	return &Indexer{
		index:    index,
		embedder: emb,
		logger:   logger,
	}
}

// IngestFile reads a JSONL corpus, skipping malformed lines, and ingests it
func (idx *Indexer) IngestFile(ctx context.Context, path string, config *Config) (*Statistics, error) {
	records, err := corpus.ReadFile(path, idx.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.Source == "" {
		cfg.Source = path
	}
	return idx.IngestRecords(ctx, records, &cfg)
}

// IngestRecords validates, embeds and stores records. A record with an empty
// id aborts the ingest before anything is written.
func (idx *Indexer) IngestRecords(ctx context.Context, records []corpus.Record, config *Config) (*Statistics, error) {
	cfg := normalizeConfig(config)
	startTime := time.Now()

	if err := ValidateRecords(records); err != nil {
		return nil, err
	}

	stats := &Statistics{
		Records:   len(records),
		Provider:  idx.embedder.Provider(),
		Model:     idx.embedder.Model(),
		Dimension: idx.embedder.Dimension(),
	}
	if len(records) == 0 {
		return stats, nil
	}

	run := &storage.IngestRun{Source: cfg.Source, Total: len(records)}
	if err := idx.index.StartIngestRun(ctx, run); err != nil {
		return nil, err
	}
	stats.RunID = run.ID

	indexed, batches, err := idx.ingestBatches(ctx, records, cfg)
	if err == nil {
		err = idx.index.CreateIndex(ctx)
	}

	stats.Indexed = indexed
	stats.Batches = batches
	stats.Duration = time.Since(startTime)

	run.Inserted = indexed
	run.Status = storage.RunSucceeded
	if err != nil {
		run.Status = storage.RunFailed
		run.Error = err.Error()
	}
	// Record the outcome even when the ingest context was cancelled
	if ferr := idx.index.FinishIngestRun(context.WithoutCancel(ctx), run); ferr != nil {
		idx.logger.Error().Err(ferr).Int64("run_id", run.ID).Msg("failed to record ingest run")
	}

	if err != nil {
		return stats, err
	}

	idx.logger.Info().
		Int("records", stats.Records).
		Int("indexed", stats.Indexed).
		Int("batches", stats.Batches).
		Dur("duration", stats.Duration).
		Msg("ingest completed")
	return stats, nil
}

// ingestBatches embeds and inserts batches concurrently, bounded by Workers
func (idx *Indexer) ingestBatches(ctx context.Context, records []corpus.Record, cfg Config) (int, int, error) {
	semaphore := make(chan struct{}, cfg.Workers)
	var indexed, batches atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < len(records); i += cfg.BatchSize {
		end := i + cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[i:end]
		offset := i

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			if err := idx.ingestBatch(gctx, batch); err != nil {
				return fmt.Errorf("batch at record %d: %w", offset, err)
			}
			indexed.Add(int32(len(batch)))
			batches.Add(1)

			idx.logger.Debug().Int("offset", offset).Int("size", len(batch)).Msg("batch inserted")
			return nil
		})
	}

	err := g.Wait()
	return int(indexed.Load()), int(batches.Load()), err
}

// ingestBatch embeds one batch and inserts it in a single transaction
func (idx *Indexer) ingestBatch(ctx context.Context, batch []corpus.Record) error {
	texts := make([]string, len(batch))
	docs := make([]storage.IndexedDocument, len(batch))
	for i := range batch {
		rec := NormalizeRecord(batch[i])
		docs[i].Document = rec.ToDocument()
		texts[i] = embeddingText(rec)
	}

	embs, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed: %w", err)
	}
	if len(embs) != len(docs) {
		return fmt.Errorf("%w: got %d embeddings for %d records", embedder.ErrProviderFailed, len(embs), len(docs))
	}

	for i, emb := range embs {
		docs[i].Dense = emb.Dense
		docs[i].Sparse = emb.Sparse
		docs[i].Provider = emb.Provider
		docs[i].Model = emb.Model
	}

	return idx.index.BulkInsert(ctx, docs)
}

// ValidateRecords checks every trimmed id is non-empty
func ValidateRecords(records []corpus.Record) error {
	for i := range records {
		if strings.TrimSpace(records[i].ID) == "" {
			return fmt.Errorf("record %d: %w", i, types.ErrMissingID)
		}
	}
	return nil
}

// NormalizeRecord trims fields and bounds the author string. The abstract is
// kept as-is.
func NormalizeRecord(rec corpus.Record) corpus.Record {
	rec.ID = strings.TrimSpace(rec.ID)
	rec.Title = strings.TrimSpace(rec.Title)
	rec.Link = strings.TrimSpace(rec.Link)
	rec.Time = strings.TrimSpace(rec.Time)
	rec.Author = truncateRunes(strings.TrimSpace(rec.Author), MaxAuthorRunes)
	return rec
}

// embeddingText picks the text to embed: the abstract, else the title, else the id
func embeddingText(rec corpus.Record) string {
	if strings.TrimSpace(rec.Abstract) != "" {
		return rec.Abstract
	}
	if rec.Title != "" {
		return rec.Title
	}
	return rec.ID
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func normalizeConfig(config *Config) Config {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > embedder.MaxBatchSize {
		cfg.BatchSize = embedder.MaxBatchSize
	}
	return cfg
}
