package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/eventpipe/internal/core"
	"github.com/JonMunkholm/eventpipe/internal/output"
	"github.com/spf13/cobra"
)

// runReport collects every stage result of a full run for json/yaml output.
type runReport struct {
	Loads        []*core.LoadResult     `json:"loads" yaml:"loads"`
	Items        *core.LoadResult       `json:"items,omitempty" yaml:"items,omitempty"`
	Merge        *core.MergeResult      `json:"merge,omitempty" yaml:"merge,omitempty"`
	Dedup        *core.DedupResult      `json:"dedup,omitempty" yaml:"dedup,omitempty"`
	Enrich       *core.EnrichResult     `json:"enrich,omitempty" yaml:"enrich,omitempty"`
	Verification *core.EnrichmentReport `json:"verification,omitempty" yaml:"verification,omitempty"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every stage: load, load-items, merge, dedup, enrich",
		Long: `Run executes the whole pipeline in order using the manifest defaults.
The first failing stage stops the run; earlier stages stay committed, and
loads that already finished are skipped when the run is repeated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromCommand(cmd)
			if err != nil {
				return err
			}

			report := &runReport{}
			runErr := rt.withPipeline(cmd, func(ctx context.Context, p Pipeline) error {
				return runPipeline(ctx, cmd.OutOrStdout(), rt, p, report)
			})
			if rt.Format != output.FormatTable {
				if err := output.WriteStructured(cmd.OutOrStdout(), rt.Format, report); err != nil {
					return err
				}
			}
			return classify(runErr)
		},
	}

	return cmd
}

// runPipeline runs each stage in order, printing tables as it goes when the
// output format is table.
func runPipeline(ctx context.Context, out io.Writer, rt *commandRuntime, p Pipeline, report *runReport) error {
	m := rt.Manifest
	table := rt.Format == output.FormatTable
	stage := func(name string) {
		rt.Logger.Info("stage started", "stage", name)
		if table {
			fmt.Fprintf(out, "\n== %s ==\n", name)
		}
	}

	eventSchema, err := rt.schema(m.Events.Schema)
	if err != nil {
		return err
	}
	itemSchema, err := rt.schema(m.Items.Schema)
	if err != nil {
		return err
	}

	stage("load")
	if files := rt.eventFiles(); len(files) > 0 {
		report.Loads, err = loadFiles(ctx, p, files, "", eventSchema)
	} else {
		var res *core.DirLoadResult
		res, err = p.LoadDir(ctx, m.Events.Dir, eventSchema)
		if res != nil {
			report.Loads = res.Files
		}
	}
	if table && len(report.Loads) > 0 {
		if rerr := renderLoads(out, report.Loads); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return err
	}

	stage("load-items")
	report.Items, err = p.Load(ctx, core.LoadRequest{Path: m.Items.File, Table: m.Items.Table, Schema: itemSchema})
	if table && report.Items != nil {
		if rerr := renderLoads(out, []*core.LoadResult{report.Items}); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return err
	}

	stage("merge")
	report.Merge, err = p.Merge(ctx, core.MergeRequest{Target: m.Merge.Target, Sources: m.Merge.Sources})
	if table && report.Merge != nil {
		if rerr := renderMerge(out, report.Merge); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return err
	}

	stage("dedup")
	report.Dedup, err = p.Deduplicate(ctx, core.DedupRequest{Table: m.Merge.Target})
	if table && report.Dedup != nil {
		if rerr := renderDedup(out, report.Dedup); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return err
	}

	stage("enrich")
	report.Enrich, err = p.Enrich(ctx, core.EnrichRequest{
		Customers: m.Merge.Target,
		Items:     m.Items.Table,
		Backup:    m.Merge.Target + core.BackupSuffix,
	})
	if table && report.Enrich != nil {
		if rerr := renderEnrich(out, report.Enrich); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return err
	}

	stage("verify")
	report.Verification, err = p.VerifyEnrichment(ctx, m.Merge.Target)
	if err != nil {
		return err
	}
	if table {
		if err := renderEnrichmentReport(out, report.Verification); err != nil {
			return err
		}
	}
	if err := rt.settle("enrichment check", report.Verification.Validation); err != nil {
		return err
	}

	rt.Logger.Info("pipeline finished", slog.Int("loaded_files", len(report.Loads)))
	return nil
}
