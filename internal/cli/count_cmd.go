package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

func newCountCmd() *cobra.Command {
	var file, table string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Report CSV line counts and table row counts",
		Long: `Count prints the data-line count of --file and the row count of --table.
With neither flag it lists every pipeline table and whether it exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromCommand(cmd)
			if err != nil {
				return err
			}

			return classify(rt.withPipeline(cmd, func(ctx context.Context, p Pipeline) error {
				if file == "" && table == "" {
					counts, err := p.CountTables(ctx, rt.tables())
					if err != nil {
						return err
					}
					return emit(cmd.OutOrStdout(), rt.Format, counts, func(w io.Writer) error {
						return renderCounts(w, counts)
					})
				}

				report, err := p.CountFileAndTable(ctx, file, table)
				if err != nil {
					return err
				}
				return emit(cmd.OutOrStdout(), rt.Format, report, func(w io.Writer) error {
					return renderRowCount(w, report)
				})
			}))
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV file to count data lines in")
	cmd.Flags().StringVar(&table, "table", "", "Table to count rows in")

	return cmd
}
