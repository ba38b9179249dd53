package core

// dedup.go removes repeated events that arrive within a short window.
//
// Rows are partitioned by the event key (event_type, product_id, price,
// user_id, user_session) and ordered by event_time. A row is kept when it
// is first in its partition or when more than the window has passed since
// the row before it. The comparison is strict: a gap of exactly the window
// is a duplicate.
//
// Rows with a NULL event_time sort last in their partition and have no
// gap, so they are kept only when they rank first in it.

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// eventKeyColumns partition the table for duplicate detection.
const eventKeyColumns = "event_type, product_id, price, user_id, user_session"

// eventColumns are the persisted columns of an event table.
const eventColumns = "event_time, " + eventKeyColumns

// DedupRequest names the table to deduplicate.
type DedupRequest struct {
	Table string
}

// rankedEventsCTE computes each row's position and predecessor time within
// its partition.
func rankedEventsCTE(table string) string {
	return fmt.Sprintf(`WITH ranked_events AS (
	SELECT %[1]s,
		ROW_NUMBER() OVER (PARTITION BY %[2]s ORDER BY event_time) AS event_rank,
		LAG(event_time) OVER (PARTITION BY %[2]s ORDER BY event_time) AS prev_event_time
	FROM %[3]s
)`, eventColumns, eventKeyColumns, quoteIdentifier(table))
}

// windowSeconds formats a window as a SQL numeric literal.
func windowSeconds(window time.Duration) string {
	return strconv.FormatFloat(window.Seconds(), 'f', -1, 64)
}

// buildDedupSQL returns the statement that writes the kept rows to staging.
// The window is inlined because CREATE TABLE AS takes no bind parameters.
func buildDedupSQL(source, staging string, window time.Duration) string {
	return fmt.Sprintf(`CREATE TABLE %s AS
%s
SELECT %s
FROM ranked_events
WHERE event_rank = 1
	OR EXTRACT(EPOCH FROM (event_time - prev_event_time)) > %s`,
		quoteIdentifier(staging), rankedEventsCTE(source), eventColumns, windowSeconds(window))
}

func exactDuplicatesSQL(table string) string {
	return fmt.Sprintf(`SELECT
	COALESCE(event_type::text, ''),
	COALESCE(product_id::text, ''),
	COALESCE(price::text, ''),
	COALESCE(user_id::text, ''),
	COALESCE(user_session::text, ''),
	event_time,
	COUNT(*) AS copies,
	COUNT(*) OVER () AS group_total
FROM %s
GROUP BY %s
HAVING COUNT(*) > 1
ORDER BY copies DESC
LIMIT GREATEST($1::int, 1)`, quoteIdentifier(table), eventColumns)
}

func windowPairsSQL(table string) string {
	return fmt.Sprintf(`%s
SELECT
	COALESCE(event_type::text, ''),
	COALESCE(product_id::text, ''),
	event_time,
	prev_event_time,
	EXTRACT(EPOCH FROM (event_time - prev_event_time))::float8 AS gap,
	COUNT(*) OVER () AS pair_total
FROM ranked_events
WHERE prev_event_time IS NOT NULL
	AND EXTRACT(EPOCH FROM (event_time - prev_event_time)) <= $2::float8
ORDER BY gap
LIMIT GREATEST($1::int, 1)`, rankedEventsCTE(table))
}

// Deduplicate replaces the table with only the rows outside the window.
//
// Staging, swap and both checks run in one transaction. In strict mode a
// failed check rolls everything back and the original table is untouched.
func (s *Service) Deduplicate(ctx context.Context, req DedupRequest) (*DedupResult, error) {
	if req.Table == "" {
		req.Table = DefaultCustomersTable
	}
	ctx, cancel, runID, logger := s.startJob(ctx, "dedup")
	defer cancel()
	logger = logger.With("table", req.Table)

	start := time.Now()
	result := &DedupResult{RunID: runID, Table: req.Table, Window: s.window}
	staging := req.Table + "_dedup"

	err := WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := requireTable(ctx, tx, req.Table); err != nil {
			return err
		}

		var err error
		if result.InitialRows, err = CountRows(ctx, tx, req.Table); err != nil {
			return err
		}
		logger.Info("dedup started", "rows", humanize.Comma(result.InitialRows), "window", s.window)

		if err := execAll(ctx, tx,
			dropTableSQL(staging),
			buildDedupSQL(req.Table, staging, s.window),
			dropTableSQL(req.Table),
			renameTableSQL(staging, req.Table),
		); err != nil {
			return err
		}

		if result.FinalRows, err = CountRows(ctx, tx, req.Table); err != nil {
			return err
		}
		result.Removed = result.InitialRows - result.FinalRows

		report, err := s.checkDedup(ctx, tx, req.Table)
		if err != nil {
			return err
		}
		result.Report = *report
		result.Validation = report.Validation

		return s.settle(logger, "dedup", result.Validation)
	})
	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}

	logger.Info("dedup finished",
		"initial", humanize.Comma(result.InitialRows),
		"final", humanize.Comma(result.FinalRows),
		"removed", humanize.Comma(result.Removed),
		"validation", result.Validation.Status(),
		"duration", result.Duration,
	)
	return result, nil
}

// CheckDedup runs the two post-dedup checks without modifying anything.
func (s *Service) CheckDedup(ctx context.Context, table string) (*DedupReport, error) {
	if table == "" {
		table = DefaultCustomersTable
	}
	if err := requireTable(ctx, s.db, table); err != nil {
		return nil, err
	}
	return s.checkDedup(ctx, s.db, table)
}

func (s *Service) checkDedup(ctx context.Context, db DBTX, table string) (*DedupReport, error) {
	report := &DedupReport{Table: table, Window: s.window}

	groups, total, err := s.exactDuplicates(ctx, db, table)
	if err != nil {
		return nil, err
	}
	report.ExactSamples, report.ExactGroups = groups, total
	report.Validation.Add("exact_duplicates", total == 0,
		"%d groups of rows identical in every column", total)

	pairs, total, err := s.windowPairs(ctx, db, table)
	if err != nil {
		return nil, err
	}
	report.PairSamples, report.WindowPairs = pairs, total
	report.Validation.Add("window_pairs", total == 0,
		"%d consecutive rows within %s of each other", total, s.window)

	return report, nil
}

func (s *Service) exactDuplicates(ctx context.Context, db DBTX, table string) ([]DuplicateGroup, int64, error) {
	rows, err := db.Query(ctx, exactDuplicatesSQL(table), s.samples)
	if err != nil {
		return nil, 0, fmt.Errorf("exact duplicate check on %s: %w", table, err)
	}
	defer rows.Close()

	var (
		groups []DuplicateGroup
		total  int64
	)
	for rows.Next() {
		var (
			g  DuplicateGroup
			ts pgtype.Timestamptz
		)
		if err := rows.Scan(&g.EventType, &g.ProductID, &g.Price, &g.UserID, &g.UserSession, &ts, &g.Count, &total); err != nil {
			return nil, 0, fmt.Errorf("scan duplicate group: %w", err)
		}
		g.EventTime = ts.Time
		if len(groups) < s.samples {
			groups = append(groups, g)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("exact duplicate check on %s: %w", table, err)
	}
	return groups, total, nil
}

func (s *Service) windowPairs(ctx context.Context, db DBTX, table string) ([]AdjacentPair, int64, error) {
	rows, err := db.Query(ctx, windowPairsSQL(table), s.samples, s.window.Seconds())
	if err != nil {
		return nil, 0, fmt.Errorf("window pair check on %s: %w", table, err)
	}
	defer rows.Close()

	var (
		pairs []AdjacentPair
		total int64
	)
	for rows.Next() {
		var (
			p        AdjacentPair
			cur, prv pgtype.Timestamptz
		)
		if err := rows.Scan(&p.EventType, &p.ProductID, &cur, &prv, &p.GapSeconds, &total); err != nil {
			return nil, 0, fmt.Errorf("scan adjacent pair: %w", err)
		}
		p.EventTime, p.PrevEventTime = cur.Time, prv.Time
		if len(pairs) < s.samples {
			pairs = append(pairs, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("window pair check on %s: %w", table, err)
	}
	return pairs, total, nil
}
