package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	t.Run("skips malformed and blank lines", func(t *testing.T) {
		var logBuf bytes.Buffer
		logger := zerolog.New(&logBuf)

		input := strings.Join([]string{
			`{"id":"2101.00001","title":"A","author":"Ann, Bob","abstract":"first"}`,
			``,
			`{"id":"broken"`,
			`{"id":"2101.00002","title":"B","abstract":"second"}`,
		}, "\n")

		records, err := Read(strings.NewReader(input), logger)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "2101.00001", records[0].ID)
		assert.Equal(t, "second", records[1].Abstract)

		assert.Contains(t, logBuf.String(), `"line":3`)
		assert.Contains(t, logBuf.String(), "skipping malformed record")
	})

	t.Run("skips oversized line", func(t *testing.T) {
		var logBuf bytes.Buffer
		logger := zerolog.New(&logBuf)

		huge := `{"id":"2101.00009","abstract":"` + strings.Repeat("x", maxLineSize) + `"}`
		input := strings.Join([]string{
			`{"id":"2101.00001","abstract":"first"}`,
			huge,
			`{"id":"2101.00002","abstract":"second"}`,
		}, "\n")

		records, err := Read(strings.NewReader(input), logger)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "2101.00001", records[0].ID)
		assert.Equal(t, "2101.00002", records[1].ID)

		assert.Contains(t, logBuf.String(), `"line":2`)
		assert.Contains(t, logBuf.String(), "skipping oversized record")
	})

	t.Run("last line without newline", func(t *testing.T) {
		records, err := Read(strings.NewReader("{\"id\":\"a\"}\r\n\n{\"id\":\"b\"}"), zerolog.Nop())
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "b", records[1].ID)
	})

	t.Run("empty input", func(t *testing.T) {
		records, err := Read(strings.NewReader(""), zerolog.Nop())
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := NewWriter(f)
	require.NoError(t, w.Write(Record{ID: "a", Title: "Graphs & <Trees>", Abstract: "x"}))
	require.NoError(t, w.Write(Record{ID: "b"}))
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())
	assert.Equal(t, 2, w.Count())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Graphs & <Trees>")

	records, err := ReadFile(path, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Graphs & <Trees>", records[0].Title)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.jsonl"), zerolog.Nop())
	assert.Error(t, err)
}

func TestToDocument(t *testing.T) {
	rec := Record{
		ID:       "2304.01234",
		Title:    "Title",
		Author:   "Ada Lovelace, Alan Turing",
		Link:     "http://arxiv.org/abs/2304.01234v1",
		Time:     "2023-04-03T17:59:59Z",
		Abstract: "Abstract text",
	}

	doc := rec.ToDocument()
	assert.Equal(t, "2304.01234", doc.ID)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, doc.Authors)
	assert.Equal(t, "2023", doc.Year())
	assert.Equal(t, rec.Link, doc.LinkOrDefault())
}
