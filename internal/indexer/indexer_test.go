package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/litsearch/internal/corpus"
	"github.com/dshills/litsearch/internal/embedder"
	"github.com/dshills/litsearch/internal/storage"
	"github.com/dshills/litsearch/pkg/types"
)

func setupIndexer(t *testing.T, emb embedder.Embedder) (*Indexer, *storage.SQLiteIndex) {
	idx, err := storage.NewSQLiteIndex(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	if emb == nil {
		emb = embedder.NewLocalProvider(32)
	}
	return New(idx, emb, zerolog.Nop()), idx
}

func makeRecords(n int) []corpus.Record {
	records := make([]corpus.Record, n)
	for i := range records {
		id := "2201." + strings.Repeat("0", 4) + string(rune('a'+i%26)) + string(rune('a'+i/26))
		records[i] = corpus.Record{
			ID:       id,
			Title:    " Title " + id + " ",
			Author:   "Ada Lovelace, Alan Turing",
			Link:     "http://arxiv.org/abs/" + id,
			Time:     "2022-01-01T00:00:00Z",
			Abstract: "Abstract text about topic " + id,
		}
	}
	return records
}

func TestIngestRecords(t *testing.T) {
	ix, idx := setupIndexer(t, nil)
	ctx := context.Background()

	records := makeRecords(65)
	stats, err := ix.IngestRecords(ctx, records, &Config{Workers: 2, Source: "test"})
	require.NoError(t, err)

	assert.Equal(t, 65, stats.Records)
	assert.Equal(t, 65, stats.Indexed)
	assert.Equal(t, 3, stats.Batches) // 30 + 30 + 5
	assert.Equal(t, embedder.ProviderLocal, stats.Provider)
	assert.Equal(t, 32, stats.Dimension)
	assert.Greater(t, stats.RunID, int64(0))

	status, err := idx.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 65, status.Documents)
	assert.Equal(t, 65, status.DenseVectors)
	require.NotNil(t, status.LastIngest)
	assert.Equal(t, storage.RunSucceeded, status.LastIngest.Status)
	assert.Equal(t, "test", status.LastIngest.Source)
	assert.Equal(t, 65, status.LastIngest.Inserted)

	docs, err := idx.GetDocuments(ctx, []string{records[0].ID})
	require.NoError(t, err)
	doc := docs[records[0].ID]
	assert.Equal(t, "Title "+records[0].ID, doc.Title)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, doc.Authors)
}

func TestIngestRecordsEmptyIDAbortsUpfront(t *testing.T) {
	ix, idx := setupIndexer(t, nil)
	ctx := context.Background()

	records := makeRecords(40)
	records[35].ID = "   "

	stats, err := ix.IngestRecords(ctx, records, nil)
	assert.ErrorIs(t, err, types.ErrMissingID)
	assert.Contains(t, err.Error(), "record 35")
	assert.Nil(t, stats)

	status, err := idx.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Documents)
	assert.Nil(t, status.LastIngest)
}

func TestIngestRecordsEmpty(t *testing.T) {
	ix, _ := setupIndexer(t, nil)
	stats, err := ix.IngestRecords(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Records)
	assert.Equal(t, int64(0), stats.RunID)
}

// failingEmbedder fails every batch call
type failingEmbedder struct {
	*embedder.LocalProvider
}

func (f failingEmbedder) EmbedBatch(context.Context, []string) ([]*embedder.Embedding, error) {
	return nil, errors.New("model unavailable")
}

func TestIngestRecordsEmbedFailureRecordsRun(t *testing.T) {
	ix, idx := setupIndexer(t, failingEmbedder{embedder.NewLocalProvider(8)})
	ctx := context.Background()

	_, err := ix.IngestRecords(ctx, makeRecords(3), &Config{Source: "broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")

	status, err := idx.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, status.LastIngest)
	assert.Equal(t, storage.RunFailed, status.LastIngest.Status)
	assert.Contains(t, status.LastIngest.Error, "model unavailable")
	assert.Equal(t, 0, status.Documents)
}

func TestIngestFile(t *testing.T) {
	ix, idx := setupIndexer(t, nil)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	content := `{"id":"p1","title":"One","author":"A","link":"l1","time":"2020-01-01","abstract":"first abstract"}
not json
{"id":"p2","title":"Two","author":"B","link":"l2","time":"2020-01-02","abstract":""}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	stats, err := ix.IngestFile(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Indexed)

	status, err := idx.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, path, status.LastIngest.Source)

	_, err = ix.IngestFile(ctx, filepath.Join(t.TempDir(), "missing.jsonl"), nil)
	assert.Error(t, err)
}

func TestNormalizeRecord(t *testing.T) {
	longAuthor := strings.Repeat("é", MaxAuthorRunes+20)

	rec := NormalizeRecord(corpus.Record{
		ID:       " id1 ",
		Title:    "  Title  ",
		Link:     " http://x ",
		Time:     " 2020 ",
		Author:   "  " + longAuthor,
		Abstract: "  keep me  ",
	})

	assert.Equal(t, "id1", rec.ID)
	assert.Equal(t, "Title", rec.Title)
	assert.Equal(t, "http://x", rec.Link)
	assert.Equal(t, "2020", rec.Time)
	assert.Equal(t, MaxAuthorRunes, len([]rune(rec.Author)))
	assert.Equal(t, "  keep me  ", rec.Abstract)
}

func TestEmbeddingText(t *testing.T) {
	tests := []struct {
		name string
		rec  corpus.Record
		want string
	}{
		{"abstract", corpus.Record{ID: "i", Title: "t", Abstract: "a"}, "a"},
		{"title fallback", corpus.Record{ID: "i", Title: "t", Abstract: " "}, "t"},
		{"id fallback", corpus.Record{ID: "i"}, "i"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, embeddingText(tt.rec))
		})
	}
}

func TestRunLock(t *testing.T) {
	var l RunLock
	assert.True(t, l.TryAcquire())
	assert.True(t, l.Held())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.False(t, l.Held())
	assert.True(t, l.TryAcquire())
}
