// Package storage persists paper documents with their dense and sparse
// vectors and answers the two sub-searches that retrieval fusion combines.
//
// Two backends implement Index:
//   - SQLite (default): documents, dense_vectors, sparse_terms and
//     ingest_runs tables, versioned by semver migrations
//   - PostgreSQL with pgvector: one documents row per paper holding a
//     vector column and a sparsevec column
//
// # Basic Usage
//
//	idx, err := storage.Open(ctx, storage.Config{Path: "litsearch.db"})
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	err = idx.BulkInsert(ctx, []storage.IndexedDocument{{
//	    Document: doc,
//	    Dense:    emb.Dense,
//	    Sparse:   emb.Sparse,
//	}})
//	dense, err := idx.SearchDense(ctx, query.Dense, 20)
//	sparse, err := idx.SearchSparse(ctx, query.Sparse, 20)
//
// # Ordering
//
// Both searches order by score descending and break ties by ascending
// document id, so repeated queries return identical rankings.
//
// # Build Modes
//
// The sqlite_vec build tag selects mattn/go-sqlite3 and ranks dense
// vectors in SQL with vec_distance_cosine. Without it the pure Go
// modernc.org/sqlite driver is used and cosine similarity is computed
// in Go.
package storage
