package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dshills/litsearch/pkg/types"
)

// searchDense performs dense similarity search using cosine similarity
func searchDense(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]types.ScoredCandidate, error) {
	// Use optimized SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchDenseOptimized(ctx, db, queryVector, limit)
	}
	// Fall back to Go-based computation for purego builds
	return searchDenseFallback(ctx, db, queryVector, limit)
}

// searchDenseOptimized uses the sqlite-vec extension to rank in SQL
func searchDenseOptimized(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]types.ScoredCandidate, error) {
	// vec_distance_cosine returns distance (lower is better); convert to similarity
	query := `
		SELECT
			doc_id,
			1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM dense_vectors
		ORDER BY similarity DESC, doc_id ASC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, serializeVector(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute dense search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectCandidates(rows, limit)
}

// searchDenseFallback loads every vector and ranks in Go
func searchDenseFallback(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]types.ScoredCandidate, error) {
	rows, err := db.QueryContext(ctx, "SELECT doc_id, vector FROM dense_vectors")
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]candidate, 0, 1024)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}
		candidates = append(candidates, candidate{id: id, score: cosineSimilarity(queryVector, vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	return buildCandidates(candidates, limit), nil
}

// searchSparse computes the inner product over shared terms in SQL
func searchSparse(ctx context.Context, db *sql.DB, queryVector types.SparseVector, limit int) ([]types.ScoredCandidate, error) {
	terms := make([]uint32, 0, len(queryVector))
	for term, w := range queryVector {
		if w != 0 {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return []types.ScoredCandidate{}, nil
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i] < terms[j] })

	values := make([]string, len(terms))
	args := make([]interface{}, 0, len(terms)*2+1)
	for i, term := range terms {
		values[i] = "(?, ?)"
		args = append(args, int64(term), float64(queryVector[term]))
	}
	args = append(args, limit)

	query := `
		WITH q(term_id, weight) AS (VALUES ` + strings.Join(values, ", ") + `)
		SELECT s.doc_id, SUM(s.weight * q.weight) AS score
		FROM sparse_terms s
		INNER JOIN q ON s.term_id = q.term_id
		GROUP BY s.doc_id
		ORDER BY score DESC, s.doc_id ASC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute sparse search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectCandidates(rows, limit)
}

// collectCandidates scans (id, score) rows already ordered by the database
func collectCandidates(rows *sql.Rows, limit int) ([]types.ScoredCandidate, error) {
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
		return nil, err
	}
	return results, nil
}

// buildCandidates takes the top limit candidates and assigns ranks
func buildCandidates(candidates []candidate, limit int) []types.ScoredCandidate {
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	results := make([]types.ScoredCandidate, limit)
	for i := 0; i < limit; i++ {
		results[i] = types.ScoredCandidate{
			ID:    candidates[i].id,
			Score: candidates[i].score,
			Rank:  i,
		}
	}
	return results
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// candidate represents a document with its similarity score
type candidate struct {
	id    string
	score float64
}

// sortCandidates orders by score descending, then id ascending
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
