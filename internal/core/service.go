package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/eventpipe/internal/config"
	"github.com/JonMunkholm/eventpipe/internal/logging"
)

// Default job settings, used when a Config leaves them unset.
const (
	DefaultBatchSize   = 100_000
	DefaultDedupWindow = time.Second
	DefaultSampleSize  = 5
)

// Table names the enrich step works with.
const (
	DefaultCustomersTable = "customers"
	DefaultItemsTable     = "items"
	BackupSuffix          = "_old"
)

// Service runs the pipeline jobs against one database.
// All settings come from the Config passed to NewService.
type Service struct {
	db         DB
	batchSize  int
	window     time.Duration
	samples    int
	advisory   bool
	jobTimeout time.Duration
}

// NewService creates a Service. A nil cfg uses the defaults.
func NewService(db DB, cfg *config.Config) *Service {
	s := &Service{
		db:        db,
		batchSize: DefaultBatchSize,
		window:    DefaultDedupWindow,
		samples:   DefaultSampleSize,
	}
	if cfg == nil {
		return s
	}
	if cfg.Loader.BatchSize > 0 {
		s.batchSize = cfg.Loader.BatchSize
	}
	if cfg.Pipeline.DedupWindow > 0 {
		s.window = cfg.Pipeline.DedupWindow
	}
	if cfg.Pipeline.SampleSize > 0 {
		s.samples = cfg.Pipeline.SampleSize
	}
	s.advisory = cfg.Pipeline.Advisory
	s.jobTimeout = cfg.Pipeline.JobTimeout
	return s
}

// Advisory reports whether failed checks are downgraded to warnings.
func (s *Service) Advisory() bool {
	return s.advisory
}

// startJob applies the job timeout, ensures a run ID, and returns a logger
// tagged with both.
func (s *Service) startJob(ctx context.Context, job string) (context.Context, context.CancelFunc, string, *slog.Logger) {
	cancel := context.CancelFunc(func() {})
	if s.jobTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
	}

	runID := logging.RunIDFromContext(ctx)
	if runID == "" {
		runID = logging.NewRunID()
		ctx = logging.ContextWithRunID(ctx, runID)
	}

	return ctx, cancel, runID, logging.WithFields(ctx, "job", job)
}

// settle decides what a failed validation means for the job.
// In strict mode it returns a *ValidationError; in advisory mode it logs
// each failed check and returns nil.
func (s *Service) settle(logger *slog.Logger, job string, v Validation) error {
	if v.Passed() {
		return nil
	}
	if !s.advisory {
		return v.Err(job)
	}
	for _, c := range v.Failed() {
		logger.Warn("validation check failed", "check", c.Name, "detail", c.Detail)
	}
	return nil
}
