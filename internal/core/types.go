package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// DB is a DBTX that can also open transactions.
type DB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ColumnType is the SQL type a CSV column is coerced to.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeVarchar
	TypeInteger
	TypeBigInt
	TypeNumeric
	TypeTimestamptz
	TypeUUID
)

var columnTypeSQL = map[ColumnType]string{
	TypeText:        "TEXT",
	TypeVarchar:     "VARCHAR",
	TypeInteger:     "INTEGER",
	TypeBigInt:      "BIGINT",
	TypeNumeric:     "NUMERIC(10, 2)",
	TypeTimestamptz: "TIMESTAMP WITH TIME ZONE",
	TypeUUID:        "UUID",
}

// columnTypeNames maps manifest spellings to column types.
var columnTypeNames = map[string]ColumnType{
	"text":                     TypeText,
	"varchar":                  TypeVarchar,
	"string":                   TypeVarchar,
	"integer":                  TypeInteger,
	"int":                      TypeInteger,
	"int4":                     TypeInteger,
	"bigint":                   TypeBigInt,
	"int8":                     TypeBigInt,
	"numeric":                  TypeNumeric,
	"numeric(10,2)":            TypeNumeric,
	"decimal":                  TypeNumeric,
	"timestamptz":              TypeTimestamptz,
	"timestamp with time zone": TypeTimestamptz,
	"uuid":                     TypeUUID,
}

// SQL returns the DDL spelling of the type.
func (t ColumnType) SQL() string {
	if s, ok := columnTypeSQL[t]; ok {
		return s
	}
	return "TEXT"
}

func (t ColumnType) String() string {
	return strings.ToLower(t.SQL())
}

// ParseColumnType resolves a manifest type name such as "bigint" or "uuid".
func ParseColumnType(name string) (ColumnType, error) {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	key = strings.ReplaceAll(key, ", ", ",")
	if t, ok := columnTypeNames[key]; ok {
		return t, nil
	}
	return TypeText, fmt.Errorf("unknown column type %q", name)
}

// ColumnSpec maps one CSV header to a typed table column.
type ColumnSpec struct {
	Name string // CSV header and column name
	Type ColumnType
}

// TableSchema is the explicit column-type mapping used to create a table.
type TableSchema struct {
	Name    string // Registry key: "events", "items"
	Columns []ColumnSpec
}

// ColumnNames returns the column names in table order.
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// CreateTableSQL returns the CREATE TABLE statement for table.
func (s TableSchema) CreateTableSQL(table string) string {
	defs := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		defs[i] = quoteIdentifier(col.Name) + " " + col.Type.SQL()
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdentifier(table), strings.Join(defs, ", "))
}

// WithTypes returns a copy of the schema with column types overridden by name.
// Unknown column names and type names are errors.
func (s TableSchema) WithTypes(overrides map[string]string) (TableSchema, error) {
	out := TableSchema{Name: s.Name, Columns: append([]ColumnSpec(nil), s.Columns...)}
	for name, typeName := range overrides {
		t, err := ParseColumnType(typeName)
		if err != nil {
			return TableSchema{}, fmt.Errorf("schema %s column %s: %w", s.Name, name, err)
		}
		found := false
		for i := range out.Columns {
			if strings.EqualFold(out.Columns[i].Name, name) {
				out.Columns[i].Type = t
				found = true
				break
			}
		}
		if !found {
			return TableSchema{}, fmt.Errorf("schema %s has no column %q", s.Name, name)
		}
	}
	return out, nil
}

// TableCount is a row count for one table.
type TableCount struct {
	Table  string `json:"table"`
	Exists bool   `json:"exists"`
	Rows   int64  `json:"rows"`
}

// LatencySummary describes the distribution of batch write times.
type LatencySummary struct {
	Count int64         `json:"count"`
	P50   time.Duration `json:"p50"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

// LoadResult is the outcome of loading one CSV file.
type LoadResult struct {
	RunID        string
	Path         string
	Table        string
	Skipped      bool // Table existed before the run; nothing was read
	Created      bool
	Batches      int
	RowsWritten  int64
	RecordsRead  int64 // CSV records parsed, excluding the header
	CSVRows      int64 // Data lines in the file (lines minus header)
	TableRows    int64
	BatchLatency LatencySummary
	Duration     time.Duration
	Validation   Validation
}

// MergeResult is the outcome of building the union table.
type MergeResult struct {
	RunID       string
	Target      string
	Sources     []TableCount
	SourceTotal int64
	TargetRows  int64
	Duration    time.Duration
	Validation  Validation
}

// DuplicateGroup is a set of rows identical in every event column.
type DuplicateGroup struct {
	EventType   string
	ProductID   string
	Price       string
	UserID      string
	UserSession string
	EventTime   time.Time
	Count       int64
}

// AdjacentPair is a kept row that follows an identical event too closely.
type AdjacentPair struct {
	EventType     string
	ProductID     string
	EventTime     time.Time
	PrevEventTime time.Time
	GapSeconds    float64
}

// DedupReport holds the results of the two post-dedup checks.
type DedupReport struct {
	Table        string
	Window       time.Duration
	ExactGroups  int64
	ExactSamples []DuplicateGroup
	WindowPairs  int64
	PairSamples  []AdjacentPair
	Validation   Validation
}

// DedupResult is the outcome of a deduplication run.
type DedupResult struct {
	RunID       string
	Table       string
	Window      time.Duration
	InitialRows int64
	FinalRows   int64
	Removed     int64
	Report      DedupReport
	Duration    time.Duration
	Validation  Validation
}

// EnrichResult is the outcome of joining customers with items.
type EnrichResult struct {
	RunID             string
	Customers         string
	Items             string
	Backup            string
	CustomerRows      int64
	ItemRows          int64
	DuplicateItemKeys int64
	EnrichedRows      int64
	MatchedRows       int64
	MatchPercent      float64
	Swapped           bool // customers now holds the enriched rows
	Duration          time.Duration
	Validation        Validation
}

// EnrichedSample is one enriched row shown for manual inspection.
type EnrichedSample struct {
	EventType    string
	ProductID    string
	CategoryCode string
	Brand        string
}

// EnrichmentReport is the follow-up verification of an enriched table.
type EnrichmentReport struct {
	Table          string
	Columns        []string
	MissingColumns []string
	Samples        []EnrichedSample
	Validation     Validation
}

// RowCountReport pairs a CSV data-line count with a table row count.
type RowCountReport struct {
	Path        string
	CSVRows     int64
	Table       string
	TableExists bool
	TableRows   int64
}
