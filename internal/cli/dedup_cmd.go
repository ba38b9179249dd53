package cli

import (
	"context"
	"io"

	"github.com/JonMunkholm/eventpipe/internal/core"
	"github.com/spf13/cobra"
)

func newDedupCmd() *cobra.Command {
	var table string
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Remove events repeated within the dedup window",
		Long: `Dedup keeps a row only when it is the first of its event key or follows
the previous identical event by more than the window (PIPELINE_DEDUP_WINDOW,
default 1s). The table is replaced in place.

With --check-only the table is left alone and only the duplicate checks run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromCommand(cmd)
			if err != nil {
				return err
			}
			if table == "" {
				table = rt.Manifest.Merge.Target
			}

			return classify(rt.withPipeline(cmd, func(ctx context.Context, p Pipeline) error {
				if checkOnly {
					return checkDedup(ctx, cmd, rt, p, table)
				}

				res, err := p.Deduplicate(ctx, core.DedupRequest{Table: table})
				if res != nil {
					if err := emit(cmd.OutOrStdout(), rt.Format, res, func(w io.Writer) error {
						return renderDedup(w, res)
					}); err != nil {
						return err
					}
				}
				return err
			}))
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Table to deduplicate (default: manifest merge.target)")
	cmd.Flags().BoolVar(&checkOnly, "check-only", false, "Run the duplicate checks without modifying the table")

	return cmd
}

func checkDedup(ctx context.Context, cmd *cobra.Command, rt *commandRuntime, p Pipeline, table string) error {
	report, err := p.CheckDedup(ctx, table)
	if err != nil {
		return err
	}
	if err := emit(cmd.OutOrStdout(), rt.Format, report, func(w io.Writer) error {
		return renderDedupReport(w, report)
	}); err != nil {
		return err
	}
	return rt.settle("dedup check", report.Validation)
}
