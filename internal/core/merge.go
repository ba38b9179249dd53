package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5"
)

// MergeRequest names the union target and its ordered sources.
type MergeRequest struct {
	Target  string
	Sources []string
}

// buildUnionSQL returns the CREATE TABLE ... AS statement stacking every
// source with UNION ALL. Duplicate rows are kept.
func buildUnionSQL(target string, sources []string) string {
	selects := make([]string, len(sources))
	for i, src := range sources {
		selects[i] = "SELECT * FROM " + quoteIdentifier(src)
	}
	return fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM (\n\t%s\n) AS combined_data",
		quoteIdentifier(target), strings.Join(selects, "\n\tUNION ALL\n\t"))
}

// Merge replaces the target table with the row-wise union of all sources.
//
// Each source must exist. Source counts are taken inside the same
// transaction as the rebuild, so the target row count is checked against
// exactly what was unioned. In strict mode a mismatch rolls back and the
// previous target is kept.
func (s *Service) Merge(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	if req.Target == "" {
		return nil, fmt.Errorf("merge: target table is required")
	}
	if len(req.Sources) == 0 {
		return nil, fmt.Errorf("merge: at least one source table is required")
	}

	ctx, cancel, runID, logger := s.startJob(ctx, "merge")
	defer cancel()
	logger = logger.With("target", req.Target)

	start := time.Now()
	result := &MergeResult{RunID: runID, Target: req.Target}

	err := WithTx(ctx, s.db, func(tx pgx.Tx) error {
		for _, src := range req.Sources {
			if err := requireTable(ctx, tx, src); err != nil {
				return err
			}
			n, err := CountRows(ctx, tx, src)
			if err != nil {
				return err
			}
			logger.Info("source counted", "source", src, "rows", humanize.Comma(n))
			result.Sources = append(result.Sources, TableCount{Table: src, Exists: true, Rows: n})
			result.SourceTotal += n
		}
		logger.Info("merging sources", "sources", len(req.Sources), "total", humanize.Comma(result.SourceTotal))

		if err := execAll(ctx, tx,
			dropTableSQL(req.Target),
			buildUnionSQL(req.Target, req.Sources),
		); err != nil {
			return err
		}

		var err error
		if result.TargetRows, err = CountRows(ctx, tx, req.Target); err != nil {
			return err
		}

		result.Validation.Add("row_count", result.TargetRows == result.SourceTotal,
			"target has %d rows, sources sum to %d", result.TargetRows, result.SourceTotal)

		return s.settle(logger, "merge", result.Validation)
	})
	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}

	logger.Info("merge finished",
		"target_rows", humanize.Comma(result.TargetRows),
		"validation", result.Validation.Status(),
		"duration", result.Duration,
	)
	return result, nil
}
