package core

// convert.go turns raw CSV cells into pgtype values for the COPY protocol.
//
// Empty cells become NULL (Valid=false), matching how the source exports
// leave category_code, brand and user_session blank. A non-empty cell that
// cannot be parsed is an error: the loader aborts rather than silently
// writing NULL over real data.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// timestampLayouts are tried in order. The event exports use the first one
// ("2022-10-01 00:00:00 UTC"); fractional seconds are accepted by all of them.
var timestampLayouts = []string{
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05 -0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgTimestamptz converts a string to pgtype.Timestamptz.
// Values without a zone are taken as UTC.
func ToPgTimestamptz(s string) pgtype.Timestamptz {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Timestamptz{Valid: false}
	}

	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Timestamptz{Time: t, Valid: true}
		}
	}

	return pgtype.Timestamptz{Valid: false}
}

// ToPgInt4 converts a string to pgtype.Int4.
// Accepts a trailing ".0", which spreadsheet exports add to integer columns.
func ToPgInt4(s string) pgtype.Int4 {
	s = trimIntegral(s)
	if s == "" {
		return pgtype.Int4{Valid: false}
	}
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// ToPgInt8 converts a string to pgtype.Int8.
func ToPgInt8(s string) pgtype.Int8 {
	s = trimIntegral(s)
	if s == "" {
		return pgtype.Int8{Valid: false}
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: i, Valid: true}
}

// ToPgNumeric converts a string to pgtype.Numeric.
// Thousands separators are removed; the column's scale rounds on insert.
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}

	return n
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// trimIntegral strips whitespace and a zero fractional part.
func trimIntegral(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	return s
}

// Convert parses a raw cell as the column type.
// Blank cells yield a NULL value and no error.
func (t ColumnType) Convert(raw string) (any, error) {
	blank := strings.TrimSpace(raw) == ""

	var (
		v     any
		valid bool
	)
	switch t {
	case TypeText, TypeVarchar:
		txt := ToPgText(raw)
		v, valid = txt, txt.Valid
	case TypeInteger:
		i := ToPgInt4(raw)
		v, valid = i, i.Valid
	case TypeBigInt:
		i := ToPgInt8(raw)
		v, valid = i, i.Valid
	case TypeNumeric:
		n := ToPgNumeric(raw)
		v, valid = n, n.Valid
	case TypeTimestamptz:
		ts := ToPgTimestamptz(raw)
		v, valid = ts, ts.Valid
	case TypeUUID:
		u := ToPgUUID(raw)
		v, valid = u, u.Valid
	default:
		return nil, fmt.Errorf("unsupported column type %d", t)
	}

	if !valid && !blank {
		return nil, fmt.Errorf("invalid %s value %q", t, raw)
	}
	return v, nil
}
