package core

// streaming.go reads CSV files batch by batch with O(batch_size) memory.
//
// The reader strips a UTF-8 BOM (Windows exports), maps header names to
// column positions once, and converts each record into typed values ready
// for pgx.CopyFrom. Byte counting lets the loader log progress on files
// far larger than memory.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// utf8BOM is the byte order mark some Windows tools prepend.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// countingReader tracks bytes consumed from the underlying file.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// skipBOM discards a leading UTF-8 BOM if one is present.
func skipBOM(br *bufio.Reader) error {
	head, err := br.Peek(len(utf8BOM))
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if bytes.Equal(head, utf8BOM) {
		_, err := br.Discard(len(utf8BOM))
		return err
	}
	return nil
}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased and trimmed for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// batchReader yields typed rows from a CSV stream in fixed-size batches.
type batchReader struct {
	csv       *csv.Reader
	counter   *countingReader
	schema    TableSchema
	positions []int // CSV position of each schema column
	rows      int64 // data rows returned so far
}

// newBatchReader reads the header from r and resolves every schema column.
// A header missing any schema column is an error; extra CSV columns are ignored.
func newBatchReader(r io.Reader, schema TableSchema) (*batchReader, error) {
	counter := &countingReader{r: r}
	br := bufio.NewReaderSize(counter, 64*1024)
	if err := skipBOM(br); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := MakeHeaderIndex(header)
	positions := make([]int, len(schema.Columns))
	var missing []string
	for i, col := range schema.Columns {
		pos, ok := idx[strings.ToLower(col.Name)]
		if !ok {
			missing = append(missing, col.Name)
			continue
		}
		positions[i] = pos
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s) %s in header %v", strings.Join(missing, ", "), header)
	}

	return &batchReader{
		csv:       cr,
		counter:   counter,
		schema:    schema,
		positions: positions,
	}, nil
}

// Next returns up to size rows. done is true once the file is exhausted;
// the final call may return rows and done together.
func (b *batchReader) Next(size int) (rows [][]any, done bool, err error) {
	rows = make([][]any, 0, size)
	for len(rows) < size {
		record, err := b.csv.Read()
		if errors.Is(err, io.EOF) {
			return rows, true, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("read csv: %w", err)
		}

		line, _ := b.csv.FieldPos(0)
		row, err := b.convert(record, line)
		if err != nil {
			return nil, false, err
		}
		rows = append(rows, row)
		b.rows++
	}
	return rows, false, nil
}

// convert builds one COPY row from a CSV record.
func (b *batchReader) convert(record []string, line int) ([]any, error) {
	row := make([]any, len(b.schema.Columns))
	for i, col := range b.schema.Columns {
		pos := b.positions[i]
		if pos >= len(record) {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, pos+1, len(record))
		}
		v, err := col.Type.Convert(record[pos])
		if err != nil {
			return nil, fmt.Errorf("line %d: column %q: %w", line, col.Name, err)
		}
		row[i] = v
	}
	return row, nil
}

// BytesRead returns how much of the file has been consumed.
func (b *batchReader) BytesRead() int64 {
	return b.counter.n
}
