package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/dshills/litsearch/pkg/types"
)

// PostgresConfig builds a connection string from parts
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString renders the config as a postgresql:// URL
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// PostgresIndex implements the Index interface using PostgreSQL with pgvector.
// Each document row carries its dense vector and its sparse vector.
type PostgresIndex struct {
	pool *pgxpool.Pool
	dim  int
}

// NewPostgresIndex connects and creates the schema for the given dense dimension
func NewPostgresIndex(ctx context.Context, connString string, dimension int) (*PostgresIndex, error) {
	if connString == "" {
		return nil, fmt.Errorf("postgres connection string is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("postgres index requires a positive dense dimension, got %d", dimension)
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &PostgresIndex{pool: pool, dim: dimension}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresIndex) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			time TEXT NOT NULL DEFAULT '',
			abstract TEXT NOT NULL DEFAULT '',
			embedding vector(%d),
			sparse sparsevec(%d),
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, p.dim, types.SparseDimension),
		`CREATE TABLE IF NOT EXISTS ingest_runs (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			total INTEGER NOT NULL DEFAULT 0,
			inserted INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ
		)`,
	}
	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply postgres schema: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool
func (p *PostgresIndex) Close() error {
	p.pool.Close()
	return nil
}

// sparseValue converts a sparse vector to its pgvector form
func sparseValue(v types.SparseVector) pgvector.SparseVector {
	elements := make(map[int32]float32, len(v))
	for term, w := range v {
		if w != 0 {
			elements[int32(term)] = w
		}
	}
	return pgvector.NewSparseVectorFromMap(elements, int32(types.SparseDimension))
}

// BulkInsert upserts documents with their vectors in a single transaction
func (p *PostgresIndex) BulkInsert(ctx context.Context, docs []IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if err := validateDocuments(docs); err != nil {
		return err
	}
	for i := range docs {
		if n := len(docs[i].Dense); n > 0 && n != p.dim {
			return fmt.Errorf("%w: document %s has %d, index has %d", ErrDimensionMismatch, docs[i].Document.ID, n, p.dim)
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO documents (id, title, author, link, time, abstract, embedding, sparse, provider, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			link = EXCLUDED.link,
			time = EXCLUDED.time,
			abstract = EXCLUDED.abstract,
			embedding = EXCLUDED.embedding,
			sparse = EXCLUDED.sparse,
			provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			updated_at = now()`

	for i := range docs {
		d := &docs[i]
		var dense interface{}
		if len(d.Dense) > 0 {
			dense = pgvector.NewVector(d.Dense)
		}
		var sparse interface{}
		if len(d.Sparse) > 0 {
			sparse = sparseValue(d.Sparse)
		}
		doc := d.Document
		if _, err := tx.Exec(ctx, query,
			doc.ID, doc.Title, joinAuthors(doc.Authors), doc.URL, doc.Timestamp, doc.Abstract,
			dense, sparse, d.Provider, d.Model,
		); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// CreateIndex builds the HNSW index for cosine search
func (p *PostgresIndex) CreateIndex(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_documents_embedding ON documents USING hnsw (embedding vector_cosine_ops)`); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	if _, err := p.pool.Exec(ctx, `ANALYZE documents`); err != nil {
		return fmt.Errorf("failed to analyze: %w", err)
	}
	return nil
}

// SearchDense ranks documents by cosine similarity
func (p *PostgresIndex) SearchDense(ctx context.Context, vector []float32, limit int) ([]types.ScoredCandidate, error) {
	if limit <= 0 || len(vector) == 0 {
		return []types.ScoredCandidate{}, nil
	}
	if len(vector) != p.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(vector), p.dim)
	}

	query := `
		SELECT id, 1 - (embedding <=> $1) AS similarity
		FROM documents
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1 ASC, id ASC
		LIMIT $2`
	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute dense search: %w", err)
	}
	return scanCandidates(rows, limit)
}

// SearchSparse ranks documents by inner product; <#> yields the negated product
func (p *PostgresIndex) SearchSparse(ctx context.Context, vector types.SparseVector, limit int) ([]types.ScoredCandidate, error) {
	if limit <= 0 || len(vector) == 0 {
		return []types.ScoredCandidate{}, nil
	}

	query := `
		SELECT id, (sparse <#> $1) * -1 AS score
		FROM documents
		WHERE sparse IS NOT NULL AND (sparse <#> $1) < 0
		ORDER BY sparse <#> $1 ASC, id ASC
		LIMIT $2`
	rows, err := p.pool.Query(ctx, query, sparseValue(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute sparse search: %w", err)
	}
	return scanCandidates(rows, limit)
}

func scanCandidates(rows pgx.Rows, limit int) ([]types.ScoredCandidate, error) {
	defer rows.Close()

	results := make([]types.ScoredCandidate, 0, limit)
	for rows.Next() {
		var c types.ScoredCandidate
		if err := rows.Scan(&c.ID, &c.Score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		c.Rank = len(results)
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return results, nil
}

// GetDocuments loads documents by id
func (p *PostgresIndex) GetDocuments(ctx context.Context, ids []string) (map[string]types.Document, error) {
	docs := make(map[string]types.Document, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, title, author, link, time, abstract FROM documents WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc types.Document
		var author string
		if err := rows.Scan(&doc.ID, &doc.Title, &author, &doc.URL, &doc.Timestamp, &doc.Abstract); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Authors = types.SplitAuthors(author)
		docs[doc.ID] = doc
	}
	return docs, rows.Err()
}

// StartIngestRun records a running ingest and sets run.ID
func (p *PostgresIndex) StartIngestRun(ctx context.Context, run *IngestRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = RunRunning

	err := p.pool.QueryRow(ctx,
		`INSERT INTO ingest_runs (source, total, inserted, status, started_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		run.Source, run.Total, run.Inserted, run.Status, run.StartedAt,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to record ingest run: %w", err)
	}
	return nil
}

// FinishIngestRun stores the final counts and status of a run
func (p *PostgresIndex) FinishIngestRun(ctx context.Context, run *IngestRun) error {
	now := time.Now()
	run.FinishedAt = &now

	tag, err := p.pool.Exec(ctx,
		`UPDATE ingest_runs SET total = $1, inserted = $2, status = $3, error = $4, finished_at = $5 WHERE id = $6`,
		run.Total, run.Inserted, run.Status, run.Error, now, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish ingest run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Status reports counts and health. SparseTerms counts documents with a sparse vector.
func (p *PostgresIndex) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		Backend:       BackendPostgres,
		SchemaVersion: CurrentSchemaVersion,
		Dimension:     p.dim,
	}
	if err := p.pool.Ping(ctx); err != nil {
		return status, nil
	}
	status.Health.DatabaseAccessible = true
	status.Health.VectorExtensionUsed = true

	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(embedding), COUNT(sparse) FROM documents
	`).Scan(&status.Documents, &status.DenseVectors, &status.SparseTerms)
	if err != nil {
		return nil, fmt.Errorf("failed to count: %w", err)
	}
	status.Health.VectorsAvailable = status.DenseVectors > 0

	var run IngestRun
	err = p.pool.QueryRow(ctx, `
		SELECT id, source, total, inserted, status, error, started_at, finished_at
		FROM ingest_runs ORDER BY id DESC LIMIT 1
	`).Scan(&run.ID, &run.Source, &run.Total, &run.Inserted, &run.Status, &run.Error, &run.StartedAt, &run.FinishedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to read ingest runs: %w", err)
	default:
		status.LastIngest = &run
	}

	return status, nil
}
