package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/eventpipe/internal/core"
	"github.com/spf13/cobra"
)

func newLoadCmd() *cobra.Command {
	var dir, table, schemaName string

	cmd := &cobra.Command{
		Use:   "load [file.csv...]",
		Short: "Load monthly event CSVs into one table per file",
		Long: `Load streams each CSV file into a table named after the file
(data_2022_oct.csv -> data_2022_oct). A table that already exists is skipped
without reading its file.

With no arguments every *.csv in --dir (or the manifest's events directory)
is loaded in name order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromCommand(cmd)
			if err != nil {
				return err
			}
			if schemaName == "" {
				schemaName = rt.Manifest.Events.Schema
			}
			schema, err := rt.schema(schemaName)
			if err != nil {
				return err
			}

			files := args
			if len(files) == 0 && dir == "" {
				files = rt.eventFiles()
			}
			if err := requireSingleFile(files, table); err != nil {
				return err
			}
			if len(files) == 0 && dir == "" {
				dir = rt.Manifest.Events.Dir
			}

			return classify(rt.withPipeline(cmd, func(ctx context.Context, p Pipeline) error {
				var (
					results []*core.LoadResult
					loadErr error
				)
				if len(files) > 0 {
					results, loadErr = loadFiles(ctx, p, files, table, schema)
				} else {
					var res *core.DirLoadResult
					res, loadErr = p.LoadDir(ctx, dir, schema)
					if res != nil {
						results = res.Files
					}
					if loadErr == nil && len(results) == 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "No CSV files found in %s.\n", dir)
						return nil
					}
				}
				if len(results) > 0 {
					if err := emit(cmd.OutOrStdout(), rt.Format, results, func(w io.Writer) error {
						return renderLoads(w, results)
					}); err != nil {
						return err
					}
				}
				return loadErr
			}))
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory of event CSVs (default: manifest events.dir)")
	cmd.Flags().StringVar(&table, "table", "", "Target table for a single file (default: file name)")
	cmd.Flags().StringVar(&schemaName, "schema", "", "Registered schema name (default: manifest events.schema)")

	return cmd
}

func newLoadItemsCmd() *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "load-items [item.csv]",
		Short: "Load the product catalog into the items table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromCommand(cmd)
			if err != nil {
				return err
			}
			schema, err := rt.schema(rt.Manifest.Items.Schema)
			if err != nil {
				return err
			}

			path := rt.Manifest.Items.File
			if len(args) == 1 {
				path = args[0]
			}
			if table == "" {
				table = rt.Manifest.Items.Table
			}

			return classify(rt.withPipeline(cmd, func(ctx context.Context, p Pipeline) error {
				res, err := p.Load(ctx, core.LoadRequest{Path: path, Table: table, Schema: schema})
				if res != nil {
					results := []*core.LoadResult{res}
					if err := emit(cmd.OutOrStdout(), rt.Format, res, func(w io.Writer) error {
						return renderLoads(w, results)
					}); err != nil {
						return err
					}
				}
				return err
			}))
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Target table (default: manifest items.table)")

	return cmd
}

// loadFiles loads each file in order. Validation failures are collected
// like LoadDir does; any other error stops the run.
func loadFiles(ctx context.Context, p Pipeline, files []string, table string, schema core.TableSchema) ([]*core.LoadResult, error) {
	results := make([]*core.LoadResult, 0, len(files))
	var failed []error
	for _, path := range files {
		res, err := p.Load(ctx, core.LoadRequest{Path: path, Table: table, Schema: schema})
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			if !isValidationError(err) {
				return results, err
			}
			failed = append(failed, err)
		}
	}
	return results, errors.Join(failed...)
}
