package core

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
)

// catalogDB answers the table-existence and column queries VerifyEnrichment
// issues, and returns no enriched rows.
type catalogDB struct {
	DB
	columns []string
	samples []string
}

type existsRow struct{}

func (existsRow) Scan(dest ...any) error {
	*dest[0].(*bool) = true
	return nil
}

func (c *catalogDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return existsRow{}
}

func (c *catalogDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	if strings.Contains(sql, "information_schema.columns") {
		return &stringRows{values: c.columns}, nil
	}
	return &stringRows{values: c.samples}, nil
}

// stringRows yields one text value per row. Sample rows repeat the value
// into every scanned column.
type stringRows struct {
	pgx.Rows
	values []string
	pos    int
}

func (r *stringRows) Next() bool {
	r.pos++
	return r.pos <= len(r.values)
}

func (r *stringRows) Scan(dest ...any) error {
	for _, d := range dest {
		*d.(*string) = r.values[r.pos-1]
	}
	return nil
}

func (r *stringRows) Close()     {}
func (r *stringRows) Err() error { return nil }

var enrichedColumns = []string{
	"event_time", "event_type", "product_id", "price", "user_id", "user_session",
	"category_id", "category_code", "brand",
}

func TestVerifyEnrichment_NoMatchesPasses(t *testing.T) {
	s := NewService(&catalogDB{columns: enrichedColumns}, nil)

	report, err := s.VerifyEnrichment(context.Background(), "customers")
	if err != nil {
		t.Fatalf("VerifyEnrichment: %v", err)
	}
	if len(report.Samples) != 0 || len(report.MissingColumns) != 0 {
		t.Errorf("report = %+v", report)
	}
	if !report.Validation.Passed() {
		t.Errorf("validation = %+v", report.Validation)
	}
	if err := report.Validation.Err("enrichment check"); err != nil {
		t.Errorf("Err = %v, want nil", err)
	}
}

func TestVerifyEnrichment_WithSamples(t *testing.T) {
	s := NewService(&catalogDB{columns: enrichedColumns, samples: []string{"samsung"}}, nil)

	report, err := s.VerifyEnrichment(context.Background(), "customers")
	if err != nil {
		t.Fatalf("VerifyEnrichment: %v", err)
	}
	if len(report.Samples) != 1 || report.Samples[0].Brand != "samsung" {
		t.Errorf("samples = %+v", report.Samples)
	}
	if !report.Validation.Passed() {
		t.Errorf("validation = %+v", report.Validation)
	}
}

func TestVerifyEnrichment_MissingColumnsFails(t *testing.T) {
	s := NewService(&catalogDB{columns: enrichedColumns[:7]}, nil)

	report, err := s.VerifyEnrichment(context.Background(), "customers")
	if err != nil {
		t.Fatalf("VerifyEnrichment: %v", err)
	}
	if strings.Join(report.MissingColumns, ",") != "category_code,brand" {
		t.Errorf("missing = %v", report.MissingColumns)
	}
	if report.Validation.Passed() {
		t.Error("missing item columns should fail verification")
	}
}
