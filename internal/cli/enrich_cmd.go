package cli

import (
	"context"
	"io"

	"github.com/JonMunkholm/eventpipe/internal/core"
	"github.com/spf13/cobra"
)

func newEnrichCmd() *cobra.Command {
	var customers, items string
	var verifyOnly bool

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Join item details onto the customers table",
		Long: `Enrich left-joins the items table onto customers by product_id. The
joined table replaces customers, and the previous table is kept as
customers_old. Events with no matching item keep NULL item columns.

The enriched table is verified afterwards. With --verify-only nothing is
changed and only the verification runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromCommand(cmd)
			if err != nil {
				return err
			}
			if customers == "" {
				customers = rt.Manifest.Merge.Target
			}
			if items == "" {
				items = rt.Manifest.Items.Table
			}

			return classify(rt.withPipeline(cmd, func(ctx context.Context, p Pipeline) error {
				if !verifyOnly {
					if err := enrich(ctx, cmd, rt, p, customers, items); err != nil {
						return err
					}
				}
				return verifyEnrichment(ctx, cmd, rt, p, customers)
			}))
		},
	}

	cmd.Flags().StringVar(&customers, "customers", "", "Events table to enrich (default: manifest merge.target)")
	cmd.Flags().StringVar(&items, "items", "", "Product catalog table (default: manifest items.table)")
	cmd.Flags().BoolVar(&verifyOnly, "verify-only", false, "Verify an already enriched table without modifying it")

	return cmd
}

func newVerifyCmd() *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the dedup and enrichment checks against the customers table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromCommand(cmd)
			if err != nil {
				return err
			}
			if table == "" {
				table = rt.Manifest.Merge.Target
			}

			return classify(rt.withPipeline(cmd, func(ctx context.Context, p Pipeline) error {
				if err := checkDedup(ctx, cmd, rt, p, table); err != nil {
					return err
				}
				return verifyEnrichment(ctx, cmd, rt, p, table)
			}))
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Table to verify (default: manifest merge.target)")

	return cmd
}

func enrich(ctx context.Context, cmd *cobra.Command, rt *commandRuntime, p Pipeline, customers, items string) error {
	res, err := p.Enrich(ctx, core.EnrichRequest{
		Customers: customers,
		Items:     items,
		Backup:    customers + core.BackupSuffix,
	})
	if res != nil {
		if err := emit(cmd.OutOrStdout(), rt.Format, res, func(w io.Writer) error {
			return renderEnrich(w, res)
		}); err != nil {
			return err
		}
	}
	return err
}

func verifyEnrichment(ctx context.Context, cmd *cobra.Command, rt *commandRuntime, p Pipeline, table string) error {
	report, err := p.VerifyEnrichment(ctx, table)
	if err != nil {
		return err
	}
	if err := emit(cmd.OutOrStdout(), rt.Format, report, func(w io.Writer) error {
		return renderEnrichmentReport(w, report)
	}); err != nil {
		return err
	}
	return rt.settle("enrichment check", report.Validation)
}
