// Package config provides centralized configuration management for the pipeline.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
//
// A Config value is built once per process and handed to each job explicitly;
// nothing in the pipeline reads the environment on its own.
package config

import (
	"strconv"
	"time"
)

// Config holds all pipeline configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Loader   LoaderConfig
	Pipeline PipelineConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// LoaderConfig holds CSV loading settings.
type LoaderConfig struct {
	// BatchSize is the number of CSV rows written per batch (default: 100000)
	BatchSize int `env:"LOADER_BATCH_SIZE" default:"100000"`

	// DataDir is the directory scanned for monthly event CSVs (default: /customer)
	DataDir string `env:"LOADER_DATA_DIR" default:"/customer"`

	// ItemsFile is the product catalog CSV (default: /item/item.csv)
	ItemsFile string `env:"LOADER_ITEMS_FILE" default:"/item/item.csv"`
}

// PipelineConfig holds settings shared by the merge, dedup and enrich jobs.
type PipelineConfig struct {
	// Manifest is an optional YAML file describing sources and schemas
	Manifest string `env:"PIPELINE_MANIFEST"`

	// Advisory downgrades failed validations to warnings (default: false)
	Advisory bool `env:"PIPELINE_ADVISORY" default:"false"`

	// DedupWindow is the adjacency threshold for duplicate events (default: 1s)
	DedupWindow time.Duration `env:"PIPELINE_DEDUP_WINDOW" default:"1s"`

	// SampleSize is how many offending rows validation reports include (default: 5)
	SampleSize int `env:"PIPELINE_SAMPLE_SIZE" default:"5"`

	// JobTimeout bounds a single job run; 0 disables the limit (default: 0s)
	JobTimeout time.Duration `env:"PIPELINE_JOB_TIMEOUT" default:"0s"`
}

// ServerConfig holds settings for the read-only status server.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	// Validation queries scan the whole customers table.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 15s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
