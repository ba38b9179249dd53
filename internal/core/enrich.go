package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/eventpipe/internal/logging"
	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5"
)

// itemColumns are the columns the join adds to each event.
var itemColumns = []string{"category_id", "category_code", "brand"}

// EnrichRequest names the tables taking part in the join.
// Empty fields default to customers, items and customers_old.
type EnrichRequest struct {
	Customers string
	Items     string
	Backup    string
}

func (r *EnrichRequest) applyDefaults() {
	if r.Customers == "" {
		r.Customers = DefaultCustomersTable
	}
	if r.Items == "" {
		r.Items = DefaultItemsTable
	}
	if r.Backup == "" {
		r.Backup = r.Customers + BackupSuffix
	}
}

// buildEnrichSQL returns the LEFT JOIN that writes enriched events to staging.
func buildEnrichSQL(customers, items, staging string) string {
	return fmt.Sprintf(`CREATE TABLE %s AS
SELECT
	c.event_time, c.event_type, c.product_id, c.price, c.user_id, c.user_session,
	i.category_id, i.category_code, i.brand
FROM %s c
LEFT JOIN %s i ON c.product_id = i.product_id`,
		quoteIdentifier(staging), quoteIdentifier(customers), quoteIdentifier(items))
}

func duplicateItemKeysSQL(items string) string {
	return fmt.Sprintf(`SELECT COUNT(*) FROM (
	SELECT product_id FROM %s
	WHERE product_id IS NOT NULL
	GROUP BY product_id
	HAVING COUNT(*) > 1
) AS dup_keys`, quoteIdentifier(items))
}

// Enrich joins customers with items and swaps the result into place.
//
// The previous customers table is kept as the backup table, replacing any
// earlier backup. The join must not change the row count; a duplicate
// product_id on the items side would fan rows out, so it is checked first.
// In strict mode a failed check rolls back before the swap.
func (s *Service) Enrich(ctx context.Context, req EnrichRequest) (*EnrichResult, error) {
	req.applyDefaults()
	ctx, cancel, runID, logger := s.startJob(ctx, "enrich")
	defer cancel()
	logger = logger.With("customers", req.Customers, "items", req.Items)

	start := time.Now()
	result := &EnrichResult{
		RunID:     runID,
		Customers: req.Customers,
		Items:     req.Items,
		Backup:    req.Backup,
	}
	staging := req.Customers + "_enriched"

	err := WithTx(ctx, s.db, func(tx pgx.Tx) error {
		for _, table := range []string{req.Customers, req.Items} {
			if err := requireTable(ctx, tx, table); err != nil {
				return err
			}
		}

		var err error
		if result.CustomerRows, err = CountRows(ctx, tx, req.Customers); err != nil {
			return err
		}
		if result.ItemRows, err = CountRows(ctx, tx, req.Items); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, duplicateItemKeysSQL(req.Items)).Scan(&result.DuplicateItemKeys); err != nil {
			return fmt.Errorf("check item keys: %w", err)
		}
		logger.Info("enrich started",
			"customer_rows", humanize.Comma(result.CustomerRows),
			"item_rows", humanize.Comma(result.ItemRows),
		)

		if err := execAll(ctx, tx,
			dropTableSQL(staging),
			buildEnrichSQL(req.Customers, req.Items, staging),
		); err != nil {
			return err
		}

		if result.EnrichedRows, err = CountRows(ctx, tx, staging); err != nil {
			return err
		}
		matched := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE category_id IS NOT NULL", quoteIdentifier(staging))
		if err := tx.QueryRow(ctx, matched).Scan(&result.MatchedRows); err != nil {
			return fmt.Errorf("count matched rows: %w", err)
		}
		result.MatchPercent = percent(result.MatchedRows, result.EnrichedRows)

		result.Validation.Add("item_keys_unique", result.DuplicateItemKeys == 0,
			"%d product_id values appear more than once in %s", result.DuplicateItemKeys, req.Items)
		result.Validation.Add("row_count", result.EnrichedRows == result.CustomerRows,
			"enriched table has %d rows, %s had %d", result.EnrichedRows, req.Customers, result.CustomerRows)

		if err := s.settle(logger, "enrich", result.Validation); err != nil {
			return err
		}

		if err := execAll(ctx, tx,
			dropTableSQL(req.Backup),
			renameTableSQL(req.Customers, req.Backup),
			renameTableSQL(staging, req.Customers),
		); err != nil {
			return err
		}
		result.Swapped = true
		return nil
	})
	result.Duration = time.Since(start)
	if err != nil {
		result.Swapped = false
		return result, err
	}

	logger.Info("enrich finished",
		"enriched_rows", humanize.Comma(result.EnrichedRows),
		"matched_rows", humanize.Comma(result.MatchedRows),
		"match_percent", fmt.Sprintf("%.2f", result.MatchPercent),
		"backup", req.Backup,
		"validation", result.Validation.Status(),
		"duration", result.Duration,
	)
	return result, nil
}

// percent returns part/total*100, or 0 for an empty total.
func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// VerifyEnrichment confirms the item columns exist on table and samples
// enriched rows for manual inspection.
func (s *Service) VerifyEnrichment(ctx context.Context, table string) (*EnrichmentReport, error) {
	if table == "" {
		table = DefaultCustomersTable
	}
	if err := requireTable(ctx, s.db, table); err != nil {
		return nil, err
	}

	report := &EnrichmentReport{Table: table}

	cols, err := tableColumns(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	report.Columns = cols

	for _, want := range itemColumns {
		if !containsColumn(cols, want) {
			report.MissingColumns = append(report.MissingColumns, want)
		}
	}
	report.Validation.Add("item_columns", len(report.MissingColumns) == 0,
		"missing columns: [%s]", strings.Join(report.MissingColumns, ", "))

	if len(report.MissingColumns) > 0 {
		return report, nil
	}

	report.Samples, err = s.enrichedSamples(ctx, table)
	if err != nil {
		return nil, err
	}
	// Zero matches is a valid outcome; the samples are for display only.
	logging.WithFields(ctx, "job", "verify-enrichment").Info("enrichment verified",
		"table", table, "sample_rows", len(report.Samples))

	return report, nil
}

// tableColumns returns the column names of table in ordinal order.
func tableColumns(ctx context.Context, db DBTX, table string) ([]string, error) {
	rows, err := db.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	cols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	return cols, nil
}

func (s *Service) enrichedSamples(ctx context.Context, table string) ([]EnrichedSample, error) {
	query := fmt.Sprintf(`SELECT
	COALESCE(event_type::text, ''),
	COALESCE(product_id::text, ''),
	COALESCE(category_code::text, ''),
	COALESCE(brand::text, '')
FROM %s
WHERE category_id IS NOT NULL
LIMIT $1`, quoteIdentifier(table))

	rows, err := s.db.Query(ctx, query, s.samples)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", table, err)
	}
	samples, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (EnrichedSample, error) {
		var e EnrichedSample
		err := row.Scan(&e.EventType, &e.ProductID, &e.CategoryCode, &e.Brand)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", table, err)
	}
	return samples, nil
}

// containsColumn checks if a column name exists in the list.
func containsColumn(columns []string, target string) bool {
	for _, col := range columns {
		if strings.EqualFold(col, target) {
			return true
		}
	}
	return false
}
