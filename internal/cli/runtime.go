package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/JonMunkholm/eventpipe/internal/config"
	"github.com/JonMunkholm/eventpipe/internal/core"
	_ "github.com/JonMunkholm/eventpipe/internal/core/schemas" // Register event and item schemas
	"github.com/JonMunkholm/eventpipe/internal/database"
	"github.com/JonMunkholm/eventpipe/internal/logging"
	"github.com/JonMunkholm/eventpipe/internal/output"
	"github.com/spf13/cobra"
)

// Pipeline is the set of jobs the commands drive. *core.Service satisfies it.
type Pipeline interface {
	Load(ctx context.Context, req core.LoadRequest) (*core.LoadResult, error)
	LoadDir(ctx context.Context, dir string, schema core.TableSchema) (*core.DirLoadResult, error)
	Merge(ctx context.Context, req core.MergeRequest) (*core.MergeResult, error)
	Deduplicate(ctx context.Context, req core.DedupRequest) (*core.DedupResult, error)
	CheckDedup(ctx context.Context, table string) (*core.DedupReport, error)
	Enrich(ctx context.Context, req core.EnrichRequest) (*core.EnrichResult, error)
	VerifyEnrichment(ctx context.Context, table string) (*core.EnrichmentReport, error)
	CountTables(ctx context.Context, tables []string) ([]core.TableCount, error)
	CountFileAndTable(ctx context.Context, path, table string) (core.RowCountReport, error)
}

var _ Pipeline = (*core.Service)(nil)

var loadConfig = config.Load

var openPipeline = func(ctx context.Context, cfg *config.Config) (Pipeline, func(), error) {
	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return core.NewService(pool, cfg), pool.Close, nil
}

// commandRuntime is the resolved configuration for one command invocation.
type commandRuntime struct {
	Config   *config.Config
	Manifest *config.Manifest
	Format   output.Format
	Logger   *slog.Logger
}

// runtimeFromCommand loads configuration, applies the persistent flags and
// sets up logging. It is called by each command that touches the database,
// so help and usage output never needs a DATABASE_URL.
func runtimeFromCommand(cmd *cobra.Command) (*commandRuntime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("advisory") {
		if cfg.Pipeline.Advisory, err = flags.GetBool("advisory"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("manifest") {
		if cfg.Pipeline.Manifest, err = flags.GetString("manifest"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("log-level") {
		if cfg.Logging.Level, err = flags.GetString("log-level"); err != nil {
			return nil, err
		}
	}
	outputMode, err := flags.GetString("output")
	if err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(outputMode)
	if err != nil {
		return nil, err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	manifest, err := config.LoadManifest(cfg.Pipeline.Manifest, cfg.Loader)
	if err != nil {
		return nil, err
	}

	rt := &commandRuntime{
		Config:   cfg,
		Manifest: manifest,
		Format:   format,
		Logger:   slog.Default(),
	}
	rt.Logger.Debug("configuration loaded", "config", cfg.String())
	return rt, nil
}

// withPipeline opens the database for the duration of fn. All jobs in one
// invocation share a run ID.
func (rt *commandRuntime) withPipeline(cmd *cobra.Command, fn func(ctx context.Context, p Pipeline) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if logging.RunIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRunID(ctx, logging.NewRunID())
	}

	p, closeFn, err := openPipeline(ctx, rt.Config)
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(ctx, p)
}

// schema resolves a registered schema with the manifest's type overrides.
func (rt *commandRuntime) schema(name string) (core.TableSchema, error) {
	schema, err := core.MustGet(name)
	if err != nil {
		return core.TableSchema{}, err
	}
	cols := rt.Manifest.Schemas[name]
	if len(cols) == 0 {
		return schema, nil
	}
	overrides := make(map[string]string, len(cols))
	for _, col := range cols {
		overrides[col.Name] = col.Type
	}
	return schema.WithTypes(overrides)
}

// eventFiles returns the manifest's explicit event file list, resolved
// against the events directory. Nil means "every CSV in the directory".
func (rt *commandRuntime) eventFiles() []string {
	if len(rt.Manifest.Events.Files) == 0 {
		return nil
	}
	files := make([]string, len(rt.Manifest.Events.Files))
	for i, f := range rt.Manifest.Events.Files {
		if filepath.IsAbs(f) || rt.Manifest.Events.Dir == "" {
			files[i] = f
		} else {
			files[i] = filepath.Join(rt.Manifest.Events.Dir, f)
		}
	}
	return files
}

// tables lists every table the pipeline produces, in pipeline order.
func (rt *commandRuntime) tables() []string {
	m := rt.Manifest
	out := make([]string, 0, len(m.Merge.Sources)+3)
	out = append(out, m.Merge.Sources...)
	out = append(out, m.Merge.Target, m.Items.Table, m.Merge.Target+core.BackupSuffix)
	return out
}

// settle applies the advisory setting to a check the command runs itself.
func (rt *commandRuntime) settle(job string, v core.Validation) error {
	if v.Passed() {
		return nil
	}
	if !rt.Config.Pipeline.Advisory {
		return v.Err(job)
	}
	for _, c := range v.Failed() {
		rt.Logger.Warn("validation check failed", "job", job, "check", c.Name, "detail", c.Detail)
	}
	return nil
}

func requireSingleFile(files []string, table string) error {
	if table != "" && len(files) != 1 {
		return fmt.Errorf("--table requires exactly one file, got %d", len(files))
	}
	return nil
}
