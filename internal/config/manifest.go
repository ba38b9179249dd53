package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMergeSources is the month order the customers table is built from.
var DefaultMergeSources = []string{
	"data_2022_oct",
	"data_2022_nov",
	"data_2022_dec",
	"data_2023_jan",
}

// Manifest describes which files and tables the pipeline works with.
// It is optional; without one the defaults reproduce the standard layout.
type Manifest struct {
	Events  EventsSection           `yaml:"events"`
	Items   ItemsSection            `yaml:"items"`
	Merge   MergeSection            `yaml:"merge"`
	Schemas map[string][]ColumnType `yaml:"schemas"`
}

// EventsSection lists the monthly event sources.
type EventsSection struct {
	Dir    string   `yaml:"dir"`
	Files  []string `yaml:"files"`
	Schema string   `yaml:"schema"`
}

// ItemsSection describes the product catalog source.
type ItemsSection struct {
	File   string `yaml:"file"`
	Table  string `yaml:"table"`
	Schema string `yaml:"schema"`
}

// MergeSection names the union target and its ordered sources.
type MergeSection struct {
	Target  string   `yaml:"target"`
	Sources []string `yaml:"sources"`
}

// ColumnType overrides the SQL type of one column in a named schema.
type ColumnType struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// DefaultManifest returns the manifest used when no file is configured.
func DefaultManifest(loader LoaderConfig) *Manifest {
	return &Manifest{
		Events: EventsSection{Dir: loader.DataDir, Schema: "events"},
		Items:  ItemsSection{File: loader.ItemsFile, Table: "items", Schema: "items"},
		Merge: MergeSection{
			Target:  "customers",
			Sources: append([]string(nil), DefaultMergeSources...),
		},
	}
}

// LoadManifest reads a YAML manifest on top of the defaults.
// An empty path returns the defaults unchanged.
func LoadManifest(path string, loader LoaderConfig) (*Manifest, error) {
	m := DefaultManifest(loader)
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	return m, nil
}

// Validate checks the manifest for missing names.
func (m *Manifest) Validate() error {
	var errs []string

	if strings.TrimSpace(m.Merge.Target) == "" {
		errs = append(errs, "merge.target is required")
	}
	if len(m.Merge.Sources) == 0 {
		errs = append(errs, "merge.sources must list at least one table")
	}
	seen := make(map[string]bool, len(m.Merge.Sources))
	for _, src := range m.Merge.Sources {
		if strings.EqualFold(src, m.Merge.Target) {
			errs = append(errs, fmt.Sprintf("merge source %q is also the target", src))
		}
		if seen[src] {
			errs = append(errs, fmt.Sprintf("merge source %q listed twice", src))
		}
		seen[src] = true
	}
	if strings.TrimSpace(m.Items.Table) == "" {
		errs = append(errs, "items.table is required")
	}
	for schema, cols := range m.Schemas {
		for _, col := range cols {
			if col.Name == "" || col.Type == "" {
				errs = append(errs, fmt.Sprintf("schemas.%s: column entries need name and type", schema))
				break
			}
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
