package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/litsearch/pkg/types"
)

// SQLiteIndex implements the Index interface using SQLite
type SQLiteIndex struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteIndex opens (or creates) the index at dbPath and applies migrations
func NewSQLiteIndex(ctx context.Context, dbPath string) (*SQLiteIndex, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteIndex{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// dimension returns the stored dense dimension, or 0 when no vectors exist
func (s *SQLiteIndex) dimension(ctx context.Context, q querier) (int, error) {
	var dim int
	err := q.QueryRowContext(ctx, "SELECT dimension FROM dense_vectors LIMIT 1").Scan(&dim)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read vector dimension: %w", err)
	}
	return dim, nil
}

// BulkInsert upserts documents with their vectors in a single transaction
func (s *SQLiteIndex) BulkInsert(ctx context.Context, docs []IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if err := validateDocuments(docs); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dim, err := s.dimension(ctx, tx)
	if err != nil {
		return err
	}

	for i := range docs {
		d := &docs[i]
		if len(d.Dense) > 0 {
			if dim == 0 {
				dim = len(d.Dense)
			}
			if len(d.Dense) != dim {
				return fmt.Errorf("%w: document %s has %d, index has %d", ErrDimensionMismatch, d.Document.ID, len(d.Dense), dim)
			}
		}
		if err := upsertDocument(ctx, tx, d); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", d.Document.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// upsertDocument writes one document row, its dense vector and its sparse terms
func upsertDocument(ctx context.Context, q querier, d *IndexedDocument) error {
	doc := d.Document
	_, err := q.ExecContext(ctx, `
		INSERT INTO documents (id, title, author, link, time, abstract, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			link = excluded.link,
			time = excluded.time,
			abstract = excluded.abstract,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Title, joinAuthors(doc.Authors), doc.URL, doc.Timestamp, doc.Abstract, time.Now(), time.Now())
	if err != nil {
		return err
	}

	if len(d.Dense) > 0 {
		_, err = q.ExecContext(ctx, `
			INSERT INTO dense_vectors (doc_id, vector, dimension, provider, model)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(doc_id) DO UPDATE SET
				vector = excluded.vector,
				dimension = excluded.dimension,
				provider = excluded.provider,
				model = excluded.model
		`, doc.ID, serializeVector(d.Dense), len(d.Dense), d.Provider, d.Model)
		if err != nil {
			return err
		}
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM sparse_terms WHERE doc_id = ?", doc.ID); err != nil {
		return err
	}
	for term, weight := range d.Sparse {
		if weight == 0 {
			continue
		}
		if _, err := q.ExecContext(ctx,
			"INSERT INTO sparse_terms (doc_id, term_id, weight) VALUES (?, ?, ?)",
			doc.ID, int64(term), float64(weight),
		); err != nil {
			return err
		}
	}
	return nil
}

// CreateIndex builds the term lookup index and refreshes planner statistics
func (s *SQLiteIndex) CreateIndex(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_sparse_terms_term ON sparse_terms(term_id)"); err != nil {
		return fmt.Errorf("failed to create term index: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("failed to analyze: %w", err)
	}
	return nil
}

// SearchDense ranks documents by cosine similarity to vector
func (s *SQLiteIndex) SearchDense(ctx context.Context, vector []float32, limit int) ([]types.ScoredCandidate, error) {
	if limit <= 0 || len(vector) == 0 {
		return []types.ScoredCandidate{}, nil
	}
	dim, err := s.dimension(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []types.ScoredCandidate{}, nil
	}
	if dim != len(vector) {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(vector), dim)
	}
	return searchDense(ctx, s.db, vector, limit)
}

// SearchSparse ranks documents by inner product over shared terms
func (s *SQLiteIndex) SearchSparse(ctx context.Context, vector types.SparseVector, limit int) ([]types.ScoredCandidate, error) {
	if limit <= 0 || len(vector) == 0 {
		return []types.ScoredCandidate{}, nil
	}
	return searchSparse(ctx, s.db, vector, limit)
}

// GetDocuments loads documents by id
func (s *SQLiteIndex) GetDocuments(ctx context.Context, ids []string) (map[string]types.Document, error) {
	docs := make(map[string]types.Document, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `SELECT id, title, author, link, time, abstract FROM documents WHERE id IN (` +
		strings.Join(placeholders, ",") + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
func (s *SQLiteIndex) StartIngestRun(ctx context.Context, run *IngestRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = RunRunning

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO ingest_runs (source, total, inserted, status, started_at) VALUES (?, ?, ?, ?, ?)",
		run.Source, run.Total, run.Inserted, run.Status, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record ingest run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = id
	return nil
}

// FinishIngestRun stores the final counts and status of a run
func (s *SQLiteIndex) FinishIngestRun(ctx context.Context, run *IngestRun) error {
	now := time.Now()
	run.FinishedAt = &now

	result, err := s.db.ExecContext(ctx,
		"UPDATE ingest_runs SET total = ?, inserted = ?, status = ?, error = ?, finished_at = ? WHERE id = ?",
		run.Total, run.Inserted, run.Status, run.Error, now, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish ingest run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// lastIngestRun returns the most recent run, or nil
func (s *SQLiteIndex) lastIngestRun(ctx context.Context) (*IngestRun, error) {
	var run IngestRun
	var finished sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, total, inserted, status, error, started_at, finished_at
		FROM ingest_runs ORDER BY id DESC LIMIT 1
	`).Scan(&run.ID, &run.Source, &run.Total, &run.Inserted, &run.Status, &run.Error, &run.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// Status reports counts, schema version and health
func (s *SQLiteIndex) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		Backend:   BackendSQLite,
		BuildMode: BuildMode,
	}

	if err := s.db.PingContext(ctx); err != nil {
		return status, nil
	}
	status.Health.DatabaseAccessible = true
	status.Health.VectorExtensionUsed = VectorExtensionAvailable

	version, err := SchemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &status.Documents},
		{"SELECT COUNT(*) FROM dense_vectors", &status.DenseVectors},
		{"SELECT COUNT(*) FROM sparse_terms", &status.SparseTerms},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}
	status.Health.VectorsAvailable = status.DenseVectors > 0

	if status.Dimension, err = s.dimension(ctx, s.db); err != nil {
		return nil, err
	}
	if status.LastIngest, err = s.lastIngestRun(ctx); err != nil {
		return nil, fmt.Errorf("failed to read ingest runs: %w", err)
	}

	return status, nil
}
