package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5"
)

// LoadRequest describes one CSV file to load.
type LoadRequest struct {
	Path   string
	Table  string // Defaults to the file's base name without extension
	Schema TableSchema
}

// TableNameFromPath returns the file's base name without its extension.
// "/customer/data_2022_oct.csv" -> "data_2022_oct"
func TableNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load streams a CSV file into a new table.
//
// If the table already exists the file is not read and the result is marked
// Skipped. Otherwise the table is created from the schema and every batch is
// appended with COPY, all in one transaction: a failed load leaves no table
// behind, so a rerun starts clean.
func (s *Service) Load(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	if req.Table == "" {
		req.Table = TableNameFromPath(req.Path)
	}
	ctx, cancel, runID, logger := s.startJob(ctx, "load")
	defer cancel()
	logger = logger.With("table", req.Table, "path", req.Path)

	start := time.Now()
	result := &LoadResult{RunID: runID, Path: req.Path, Table: req.Table}

	exists, err := TableExists(ctx, s.db, req.Table)
	if err != nil {
		return nil, err
	}
	if exists {
		logger.Info("table already exists, skipping")
		result.Skipped = true
		result.Duration = time.Since(start)
		return result, nil
	}

	f, err := os.Open(req.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingFileError{Path: req.Path}
		}
		return nil, fmt.Errorf("open %s: %w", req.Path, err)
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	reader, err := newBatchReader(f, req.Schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Path, err)
	}

	logger.Info("load started", "size", humanize.Bytes(uint64(size)), "batch_size", s.batchSize)

	latency := newLatencyRecorder()
	columns := req.Schema.ColumnNames()

	err = WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, req.Schema.CreateTableSQL(req.Table)); err != nil {
			return fmt.Errorf("create table %s: %w", req.Table, err)
		}
		result.Created = true

		for {
			rows, done, err := reader.Next(s.batchSize)
			if err != nil {
				return fmt.Errorf("%s: %w", req.Path, err)
			}

			if len(rows) > 0 {
				batchStart := time.Now()
				n, err := tx.CopyFrom(ctx, pgx.Identifier{req.Table}, columns, pgx.CopyFromRows(rows))
				if err != nil {
					return fmt.Errorf("copy batch %d into %s: %w", result.Batches+1, req.Table, err)
				}
				latency.Record(time.Since(batchStart))

				result.Batches++
				result.RowsWritten += n
				logger.Info("batch written",
					"batch", result.Batches,
					"rows", n,
					"total", humanize.Comma(result.RowsWritten),
					"read", humanize.Bytes(uint64(reader.BytesRead())),
				)
			}

			if done {
				break
			}
		}

		var err error
		result.RecordsRead = reader.rows
		if result.TableRows, err = CountRows(ctx, tx, req.Table); err != nil {
			return err
		}
		addCopyCheck(&result.Validation, result.RecordsRead, result.RowsWritten, result.TableRows)
		return s.settle(logger, "load", result.Validation)
	})
	result.BatchLatency = latency.Summary()
	if err != nil {
		result.Created = false
		result.Duration = time.Since(start)
		var valErr *ValidationError
		if errors.As(err, &valErr) {
			return result, err
		}
		return nil, err
	}

	if result.CSVRows, err = CountDataLines(req.Path); err != nil {
		return nil, err
	}
	// Quoted fields may span lines, so a differing line count is reported
	// without failing the load.
	if result.CSVRows != result.RecordsRead {
		logger.Warn("csv line count differs from records read",
			"csv_rows", result.CSVRows,
			"records", result.RecordsRead,
		)
	}
	result.Duration = time.Since(start)

	logger.Info("load finished",
		"batches", result.Batches,
		"records", result.RecordsRead,
		"csv_rows", result.CSVRows,
		"table_rows", result.TableRows,
		"batch_p99", result.BatchLatency.P99,
		"validation", result.Validation.Status(),
		"duration", result.Duration,
	)
	return result, nil
}

// addCopyCheck records whether every CSV record read reached the table.
func addCopyCheck(v *Validation, read, written, inTable int64) {
	v.Add("rows_copied", read == written && written == inTable,
		"read %d records, copied %d, table has %d", read, written, inTable)
}

// DirLoadResult collects the per-file results of LoadDir.
type DirLoadResult struct {
	Dir   string
	Files []*LoadResult
}

// Loaded returns how many files were loaded rather than skipped.
func (r *DirLoadResult) Loaded() int {
	n := 0
	for _, f := range r.Files {
		if !f.Skipped {
			n++
		}
	}
	return n
}

// FindCSVFiles returns the *.csv files in dir, sorted by name.
func FindCSVFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingFileError{Path: dir}
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// LoadDir loads every CSV file in dir into a table named after the file.
//
// Validation failures are collected and returned together after all files
// are processed; any other error stops the run.
func (s *Service) LoadDir(ctx context.Context, dir string, schema TableSchema) (*DirLoadResult, error) {
	files, err := FindCSVFiles(dir)
	if err != nil {
		return nil, err
	}

	result := &DirLoadResult{Dir: dir}
	var validationErrs []error

	for _, path := range files {
		res, err := s.Load(ctx, LoadRequest{Path: path, Schema: schema})
		var valErr *ValidationError
		if errors.As(err, &valErr) {
			validationErrs = append(validationErrs, err)
		} else if err != nil {
			return result, err
		}
		result.Files = append(result.Files, res)
	}

	return result, errors.Join(validationErrs...)
}
