package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/litsearch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrDimensionMismatch is returned when a dense vector does not match the index dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrUnknownBackend is returned for an unsupported index backend name
	ErrUnknownBackend = errors.New("unknown index backend")
)

// Index stores paper documents with their dense and sparse vectors and
// answers the two sub-searches the fusion step combines
type Index interface {
	// SearchDense returns up to limit documents by cosine similarity, descending
	SearchDense(ctx context.Context, vector []float32, limit int) ([]types.ScoredCandidate, error)

	// SearchSparse returns up to limit documents by inner product over shared terms, descending
	SearchSparse(ctx context.Context, vector types.SparseVector, limit int) ([]types.ScoredCandidate, error)

	// BulkInsert upserts documents and their vectors by id in one transaction
	BulkInsert(ctx context.Context, docs []IndexedDocument) error

	// CreateIndex builds the search indexes after loading
	CreateIndex(ctx context.Context) error

	// GetDocuments hydrates ids; ids that are not stored are absent from the map
	GetDocuments(ctx context.Context, ids []string) (map[string]types.Document, error)

	// Status reports index contents and health
	Status(ctx context.Context) (*Status, error)

	// Ingest run bookkeeping
	StartIngestRun(ctx context.Context, run *IngestRun) error
	FinishIngestRun(ctx context.Context, run *IngestRun) error

	Close() error
}

// IndexedDocument is a document ready for insertion
type IndexedDocument struct {
	Document types.Document
	Dense    []float32
	Sparse   types.SparseVector
	Provider string
	Model    string
}

// Ingest run states
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// IngestRun records one ingestion of a corpus file
type IngestRun struct {
	ID         int64      `json:"id"`
	Source     string     `json:"source"`
	Total      int        `json:"total"`
	Inserted   int        `json:"inserted"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Status contains statistics about the index
type Status struct {
	Backend       string       `json:"backend"`
	BuildMode     string       `json:"build_mode,omitempty"`
	SchemaVersion string       `json:"schema_version"`
	Documents     int          `json:"documents"`
	DenseVectors  int          `json:"dense_vectors"`
	SparseTerms   int          `json:"sparse_terms"`
	Dimension     int          `json:"dimension"`
	LastIngest    *IngestRun   `json:"last_ingest,omitempty"`
	Health        HealthStatus `json:"health"`
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool `json:"database_accessible"`
	VectorsAvailable    bool `json:"vectors_available"`
	VectorExtensionUsed bool `json:"vector_extension_used"`
}

// Backends
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config selects and configures an index backend
type Config struct {
	Backend   string // sqlite (default) or postgres
	Path      string // sqlite database path, ":memory:" for tests
	DSN       string // postgres connection string
	Dimension int    // dense dimension, required by postgres for the vector column
}

// Open creates the configured index backend
func Open(ctx context.Context, cfg Config) (Index, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendSQLite, "":
		return NewSQLiteIndex(ctx, cfg.Path)
	case BackendPostgres:
		return NewPostgresIndex(ctx, cfg.DSN, cfg.Dimension)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

// validateDocuments rejects documents without an id before anything is written
func validateDocuments(docs []IndexedDocument) error {
	for i := range docs {
		if err := docs[i].Document.Validate(); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}

// joinAuthors stores an author list in the corpus ", " format
func joinAuthors(authors []string) string {
	return strings.Join(authors, ", ")
}
