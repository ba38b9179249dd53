package cli

import "github.com/spf13/cobra"

// NewRootCmd builds the eventpipe root command tree.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventpipe",
		Short: "Batch pipeline for monthly customer event exports",
		Long: `eventpipe loads monthly customer event CSVs into PostgreSQL, merges them
into one customers table, removes near-duplicate events, and enriches the
result with the product catalog.

Each job validates its own output. A failed check stops the job and rolls
it back unless --advisory is set.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.Bool("advisory", false, "Log failed validation checks instead of failing the job")
	flags.String("manifest", "", "YAML manifest describing sources and schemas")
	flags.StringP("output", "o", "table", "Output format: table, json, or yaml")
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(newLoadCmd())
	cmd.AddCommand(newLoadItemsCmd())
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newDedupCmd())
	cmd.AddCommand(newEnrichCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
