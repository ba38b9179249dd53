package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/JonMunkholm/eventpipe/internal/core"
	"github.com/JonMunkholm/eventpipe/internal/output"
)

// emit writes payload as JSON or YAML, or calls table for the default format.
func emit(w io.Writer, format output.Format, payload any, table func(io.Writer) error) error {
	if format != output.FormatTable {
		return output.WriteStructured(w, format, payload)
	}
	return table(w)
}

func renderChecks(w io.Writer, v core.Validation) error {
	if len(v.Checks) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(v.Checks))
	for _, c := range v.Checks {
		status := "ok"
		if !c.Passed {
			status = "FAILED"
		}
		rows = append(rows, []string{c.Name, status, c.Detail})
	}
	fmt.Fprintln(w)
	return output.WriteTable(w, []string{"CHECK", "STATUS", "DETAIL"}, rows)
}

func renderLoads(w io.Writer, results []*core.LoadResult) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Skipped {
			rows = append(rows, []string{r.Table, "skipped", "-", "-", "-", "-", output.Duration(r.Duration)})
			continue
		}
		rows = append(rows, []string{
			r.Table,
			r.Validation.Status(),
			strconv.Itoa(r.Batches),
			output.Count(r.CSVRows),
			output.Count(r.TableRows),
			output.Duration(r.BatchLatency.P99),
			output.Duration(r.Duration),
		})
	}
	if err := output.WriteTable(w, []string{"TABLE", "STATUS", "BATCHES", "CSV_ROWS", "TABLE_ROWS", "BATCH_P99", "DURATION"}, rows); err != nil {
		return err
	}
	for _, r := range results {
		if r != nil && !r.Validation.Passed() {
			if err := renderChecks(w, r.Validation); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderMerge(w io.Writer, r *core.MergeResult) error {
	rows := make([][]string, 0, len(r.Sources)+2)
	for _, src := range r.Sources {
		rows = append(rows, []string{src.Table, output.Count(src.Rows)})
	}
	rows = append(rows,
		[]string{"(sum of sources)", output.Count(r.SourceTotal)},
		[]string{r.Target, output.Count(r.TargetRows)},
	)
	if err := output.WriteTable(w, []string{"TABLE", "ROWS"}, rows); err != nil {
		return err
	}
	return renderChecks(w, r.Validation)
}

func renderDedup(w io.Writer, r *core.DedupResult) error {
	rows := [][]string{
		{"table", r.Table},
		{"window", r.Window.String()},
		{"initial rows", output.Count(r.InitialRows)},
		{"final rows", output.Count(r.FinalRows)},
		{"removed", output.Count(r.Removed)},
		{"duration", output.Duration(r.Duration)},
	}
	if err := output.WriteTable(w, nil, rows); err != nil {
		return err
	}
	return renderDedupReport(w, &r.Report)
}

func renderDedupReport(w io.Writer, r *core.DedupReport) error {
	if err := renderChecks(w, r.Validation); err != nil {
		return err
	}
	if len(r.ExactSamples) > 0 {
		fmt.Fprintln(w, "\nExact duplicate groups:")
		rows := make([][]string, 0, len(r.ExactSamples))
		for _, g := range r.ExactSamples {
			rows = append(rows, []string{
				g.EventType, g.ProductID, g.Price, g.UserID, g.UserSession,
				g.EventTime.Format("2006-01-02 15:04:05"), output.Count(g.Count),
			})
		}
		if err := output.WriteTable(w, []string{"EVENT_TYPE", "PRODUCT_ID", "PRICE", "USER_ID", "USER_SESSION", "EVENT_TIME", "COUNT"}, rows); err != nil {
			return err
		}
	}
	if len(r.PairSamples) > 0 {
		fmt.Fprintf(w, "\nEvents within %s of an identical event:\n", r.Window)
		rows := make([][]string, 0, len(r.PairSamples))
		for _, p := range r.PairSamples {
			rows = append(rows, []string{
				p.EventType, p.ProductID,
				p.PrevEventTime.Format("2006-01-02 15:04:05.000"),
				p.EventTime.Format("2006-01-02 15:04:05.000"),
				strconv.FormatFloat(p.GapSeconds, 'f', 3, 64),
			})
		}
		if err := output.WriteTable(w, []string{"EVENT_TYPE", "PRODUCT_ID", "PREVIOUS", "EVENT_TIME", "GAP_S"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func renderEnrich(w io.Writer, r *core.EnrichResult) error {
	rows := [][]string{
		{"customers", r.Customers},
		{"items", r.Items},
		{"customer rows", output.Count(r.CustomerRows)},
		{"item rows", output.Count(r.ItemRows)},
		{"enriched rows", output.Count(r.EnrichedRows)},
		{"matched rows", output.Count(r.MatchedRows) + " (" + output.Percent(r.MatchPercent) + ")"},
		{"backup", output.OrNone(r.Backup)},
		{"swapped", output.YesNo(r.Swapped)},
		{"duration", output.Duration(r.Duration)},
	}
	if err := output.WriteTable(w, nil, rows); err != nil {
		return err
	}
	return renderChecks(w, r.Validation)
}

func renderEnrichmentReport(w io.Writer, r *core.EnrichmentReport) error {
	if err := renderChecks(w, r.Validation); err != nil {
		return err
	}
	if len(r.Samples) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nSample enriched rows from %s:\n", r.Table)
	rows := make([][]string, 0, len(r.Samples))
	for _, s := range r.Samples {
		rows = append(rows, []string{s.EventType, s.ProductID, output.OrNone(s.CategoryCode), output.OrNone(s.Brand)})
	}
	return output.WriteTable(w, []string{"EVENT_TYPE", "PRODUCT_ID", "CATEGORY_CODE", "BRAND"}, rows)
}

func renderCounts(w io.Writer, counts []core.TableCount) error {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		n := "-"
		if c.Exists {
			n = output.Count(c.Rows)
		}
		rows = append(rows, []string{c.Table, output.YesNo(c.Exists), n})
	}
	return output.WriteTable(w, []string{"TABLE", "EXISTS", "ROWS"}, rows)
}

func renderRowCount(w io.Writer, r core.RowCountReport) error {
	var rows [][]string
	if r.Path != "" {
		rows = append(rows, []string{"csv data lines", r.Path, output.Count(r.CSVRows)})
	}
	if r.Table != "" {
		n := "missing"
		if r.TableExists {
			n = output.Count(r.TableRows)
		}
		rows = append(rows, []string{"table rows", r.Table, n})
	}
	return output.WriteTable(w, nil, rows)
}
