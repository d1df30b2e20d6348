// Package corpus reads and writes paper records stored as JSON Lines.
//
// Every line holds one Record. The same format feeds ingestion, evaluation
// task building and the output of corpus acquisition.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/dshills/litsearch/pkg/types"
)

// maxLineSize bounds one JSONL line; abstracts are a few KB at most
const maxLineSize = 4 * 1024 * 1024

// Record is one paper in the JSONL corpus format. Author is a single
// ", "-joined string.
type Record struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Link     string `json:"link"`
	Time     string `json:"time"`
	Abstract string `json:"abstract"`
}

// ToDocument converts the record into a Document
func (r *Record) ToDocument() types.Document {
	return types.Document{
		ID:        r.ID,
		Title:     r.Title,
		Authors:   types.SplitAuthors(r.Author),
		Abstract:  r.Abstract,
		URL:       r.Link,
		Timestamp: r.Time,
	}
}

// Read decodes records line by line. Blank lines are ignored; malformed or
// oversized lines are logged with their line number and skipped.
func Read(r io.Reader, logger zerolog.Logger) ([]Record, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	records := make([]Record, 0)
	lineNo := 0
	skipped := 0
	for {
		raw, n, err := readLine(br, maxLineSize)
		if err != nil && !errors.Is(err, io.EOF) {
			return records, fmt.Errorf("read records: %w", err)
		}
		if n == 0 && err != nil {
			break
		}
		lineNo++

		switch {
		case raw == nil:
			skipped++
			logger.Warn().Int("line", lineNo).Int("bytes", n).Msg("skipping oversized record")
		case len(bytes.TrimSpace(raw)) > 0:
			var rec Record
			if jerr := json.Unmarshal(raw, &rec); jerr != nil {
				skipped++
				logger.Warn().Err(jerr).Int("line", lineNo).Msg("skipping malformed record")
				break
			}
			records = append(records, rec)
		}

		if err != nil {
			break
		}
	}

	if skipped > 0 {
		logger.Info().Int("skipped", skipped).Int("records", len(records)).Msg("corpus read with skipped lines")
	}
	return records, nil
}

// readLine returns the next line without enforcing a scanner token limit.
// n counts every byte consumed; a line longer than limit is drained and
// returned as nil.
func readLine(br *bufio.Reader, limit int) ([]byte, int, error) {
	line := make([]byte, 0)
	n := 0
	for {
		chunk, err := br.ReadSlice('\n')
		n += len(chunk)
		if line != nil {
			if n > limit {
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, n, err
	}
}

// ReadFile opens path and reads its records
func ReadFile(path string, logger zerolog.Logger) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	records, err := Read(f, logger.With().Str("path", path).Logger())
	if err != nil {
		return records, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Writer appends records as JSON Lines
type Writer struct {
	w     *bufio.Writer
	enc   *json.Encoder
	count int
}

// NewWriter creates a Writer over w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &Writer{w: bw, enc: enc}
}

// Write encodes one record as a line
func (w *Writer) Write(rec Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("write record %q: %w", rec.ID, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	return w.count
}

// Flush writes buffered records to the underlying writer
func (w *Writer) Flush() error {
	return w.w.Flush()
}
