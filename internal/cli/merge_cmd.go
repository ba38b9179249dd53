package cli

import (
	"context"
	"io"

	"github.com/JonMunkholm/eventpipe/internal/core"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	var target string
	var sources []string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Rebuild the customers table as the union of the monthly tables",
		Long: `Merge drops the target table and recreates it from every source table
with UNION ALL, then checks that the target holds exactly the sum of the
source row counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromCommand(cmd)
			if err != nil {
				return err
			}
			if target == "" {
				target = rt.Manifest.Merge.Target
			}
			if len(sources) == 0 {
				sources = rt.Manifest.Merge.Sources
			}

			return classify(rt.withPipeline(cmd, func(ctx context.Context, p Pipeline) error {
				res, err := p.Merge(ctx, core.MergeRequest{Target: target, Sources: sources})
				if res != nil {
					if err := emit(cmd.OutOrStdout(), rt.Format, res, func(w io.Writer) error {
						return renderMerge(w, res)
					}); err != nil {
						return err
					}
				}
				return err
			}))
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Table to build (default: manifest merge.target)")
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "Ordered source tables (default: manifest merge.sources)")

	return cmd
}
