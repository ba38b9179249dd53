package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// CountDataLines returns the number of lines in a CSV file minus the header.
//
// This is a raw line count: a trailing line without a newline counts, and a
// quoted field containing newlines counts once per physical line. It is
// reported next to the table count for manual verification.
func CountDataLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, &MissingFileError{Path: path}
		}
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	lines, err := countLines(f)
	if err != nil {
		return 0, fmt.Errorf("count lines in %s: %w", path, err)
	}
	if lines == 0 {
		return 0, nil
	}
	return lines - 1, nil
}

// countLines counts newline-terminated lines plus an unterminated last line.
func countLines(r io.Reader) (int64, error) {
	buf := make([]byte, 64*1024)
	var (
		count int64
		last  byte
		read  bool
	)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			count += int64(bytes.Count(buf[:n], []byte{'\n'}))
			last = buf[n-1]
			read = true
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if read && last != '\n' {
		count++
	}
	return count, nil
}

// TableExists reports whether table exists in the current schema.
func TableExists(ctx context.Context, db DBTX, table string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return exists, nil
}

// CountRows returns the row count of table.
func CountRows(ctx context.Context, db DBTX, table string) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(table))
	if err := db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// requireTable returns a *MissingTableError if table does not exist.
func requireTable(ctx context.Context, db DBTX, table string) error {
	exists, err := TableExists(ctx, db, table)
	if err != nil {
		return err
	}
	if !exists {
		return &MissingTableError{Table: table}
	}
	return nil
}

// CountTables returns counts for each table, marking absent ones.
func (s *Service) CountTables(ctx context.Context, tables []string) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(tables))
	for _, table := range tables {
		tc := TableCount{Table: table}
		exists, err := TableExists(ctx, s.db, table)
		if err != nil {
			return nil, err
		}
		if exists {
			tc.Exists = true
			if tc.Rows, err = CountRows(ctx, s.db, table); err != nil {
				return nil, err
			}
		}
		counts = append(counts, tc)
	}
	return counts, nil
}

// CountFileAndTable reports the CSV data-line count next to the table count.
// Either side may be omitted by passing "".
func (s *Service) CountFileAndTable(ctx context.Context, path, table string) (RowCountReport, error) {
	report := RowCountReport{Path: path, Table: table}

	if path != "" {
		n, err := CountDataLines(path)
		if err != nil {
			return report, err
		}
		report.CSVRows = n
	}

	if table != "" {
		counts, err := s.CountTables(ctx, []string{table})
		if err != nil {
			return report, err
		}
		report.TableExists = counts[0].Exists
		report.TableRows = counts[0].Rows
	}

	return report, nil
}
