package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/crucible/config"
)

// OutputManager handles structured run output: a CSV of per-generation
// records plus the effective configuration. A nil manager discards writes,
// so callers never branch on whether output is enabled.
type OutputManager struct {
	dir  string
	file *os.File

	headerWritten bool
}

// NewOutputManager creates the output directory and opens generations.csv.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "generations.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating generations.csv: %w", err)
	}
	return &OutputManager{dir: dir, file: f}, nil
}

// WriteConfig saves the effective configuration as YAML next to the CSV.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteRecord appends one generation record to generations.csv.
func (om *OutputManager) WriteRecord(rec Record) error {
	if om == nil {
		return nil
	}
	records := []Record{rec}
	if !om.headerWritten {
		if err := gocsv.Marshal(records, om.file); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		om.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.file); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

// Close flushes and closes the CSV file.
func (om *OutputManager) Close() error {
	if om == nil || om.file == nil {
		return nil
	}
	return om.file.Close()
}

// Dir returns the output directory, empty when output is disabled.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}
