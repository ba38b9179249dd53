package core

import (
	"slices"
	"sort"
	"strings"
	"testing"
)

func TestParseColumnType(t *testing.T) {
	tests := []struct {
		input   string
		want    ColumnType
		wantErr bool
	}{
		{"bigint", TypeBigInt, false},
		{"BIGINT", TypeBigInt, false},
		{"int", TypeInteger, false},
		{"uuid", TypeUUID, false},
		{"Numeric(10, 2)", TypeNumeric, false},
		{"timestamp   with time zone", TypeTimestamptz, false},
		{"string", TypeVarchar, false},
		{"text", TypeText, false},
		{"blob", TypeText, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColumnType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColumnType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestColumnTypeSQL(t *testing.T) {
	if got := TypeNumeric.SQL(); got != "NUMERIC(10, 2)" {
		t.Errorf("TypeNumeric.SQL() = %q", got)
	}
	if got := ColumnType(99).SQL(); got != "TEXT" {
		t.Errorf("unknown type SQL() = %q, want TEXT", got)
	}
	if got := TypeTimestamptz.String(); got != "timestamp with time zone" {
		t.Errorf("String() = %q", got)
	}
}

func TestTableSchemaWithTypes(t *testing.T) {
	s, err := testEventSchema.WithTypes(map[string]string{"PRODUCT_ID": "bigint", "user_session": "text"})
	if err != nil {
		t.Fatalf("WithTypes: %v", err)
	}
	if s.Columns[2].Type != TypeBigInt || s.Columns[5].Type != TypeText {
		t.Errorf("overrides not applied: %+v", s.Columns)
	}
	if testEventSchema.Columns[2].Type != TypeInteger {
		t.Error("WithTypes modified the original schema")
	}

	if _, err := testEventSchema.WithTypes(map[string]string{"nope": "text"}); err == nil {
		t.Error("unknown column should error")
	}
	if _, err := testEventSchema.WithTypes(map[string]string{"price": "money"}); err == nil {
		t.Error("unknown type should error")
	}
}

func TestCreateTableSQL(t *testing.T) {
	items := TableSchema{Name: "items", Columns: []ColumnSpec{
		{Name: "product_id", Type: TypeInteger},
		{Name: "brand", Type: TypeVarchar},
	}}
	got := items.CreateTableSQL("items")
	want := `CREATE TABLE "items" ("product_id" INTEGER, "brand" VARCHAR)`
	if got != want {
		t.Errorf("CreateTableSQL() = %s, want %s", got, want)
	}
}

func TestRegistry(t *testing.T) {
	schema := testEventSchema
	schema.Name = "registry_events"
	Register(schema)

	if got, ok := Get("registry_events"); !ok || len(got.Columns) != len(schema.Columns) {
		t.Fatalf("Get(registry_events) = %+v, %v", got, ok)
	}
	if _, err := MustGet("missing"); err == nil || !strings.Contains(err.Error(), "registry_events") {
		t.Errorf("MustGet(missing) error = %v, want list of known schemas", err)
	}
	names := Names()
	if !sort.StringsAreSorted(names) || !slices.Contains(names, "registry_events") {
		t.Errorf("Names() = %v", names)
	}

	assertPanics(t, "duplicate", func() { Register(schema) })
	assertPanics(t, "no columns", func() { Register(TableSchema{Name: "empty"}) })
}

func assertPanics(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}
