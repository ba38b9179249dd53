// Package output renders job results for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

// WriteTable writes aligned columns. Every row must match the header width.
func WriteTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(headers) > 0 {
		if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
			return err
		}
	}
	for i, row := range rows {
		if len(headers) > 0 && len(row) != len(headers) {
			return fmt.Errorf("table row %d has %d columns, expected %d", i, len(row), len(headers))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Count formats a row count with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// Percent formats a percentage with two decimals.
func Percent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}

// Duration rounds d for display.
func Duration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

// OrNone returns "<none>" for blank values.
func OrNone(v string) string {
	if strings.TrimSpace(v) == "" {
		return "<none>"
	}
	return strings.TrimSpace(v)
}

// YesNo formats a boolean.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
