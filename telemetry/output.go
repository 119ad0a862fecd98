package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/evolve/config"
)

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir         string
	epochsFile  *os.File
	actionsFile *os.File
	perfFile    *os.File

	// Track if headers have been written
	epochsHeaderWritten  bool
	actionsHeaderWritten bool
	perfHeaderWritten    bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **os.File
	}{
		{"epochs.csv", &om.epochsFile},
		{"actions.csv", &om.actionsFile},
		{"perf.csv", &om.perfFile},
	}
	for _, f := range files {
		fh, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		*f.dst = fh
	}
	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// appendCSV writes records, including the header only on the first call.
func appendCSV(f *os.File, written *bool, records any) error {
	if !*written {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*written = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// WriteEpoch writes an epoch stats record to epochs.csv.
func (om *OutputManager) WriteEpoch(stats EpochStats) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.epochsFile, &om.epochsHeaderWritten, []EpochStats{stats}); err != nil {
		return fmt.Errorf("writing epochs: %w", err)
	}
	return nil
}

// WriteActions writes histogram rows to actions.csv.
func (om *OutputManager) WriteActions(rows []ActionRow) error {
	if om == nil || len(rows) == 0 {
		return nil
	}
	if err := appendCSV(om.actionsFile, &om.actionsHeaderWritten, rows); err != nil {
		return fmt.Errorf("writing actions: %w", err)
	}
	return nil
}

// WritePerf writes an epoch timing record to perf.csv.
func (om *OutputManager) WritePerf(p PerfStats) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.perfFile, &om.perfHeaderWritten, []PerfStats{p}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteSnapshot saves a snapshot as snapshots/epoch_NNNN.json.
func (om *OutputManager) WriteSnapshot(s *Snapshot) error {
	if om == nil || s == nil {
		return nil
	}
	dir := filepath.Join(om.dir, "snapshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshots directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("epoch_%04d.json", s.Epoch))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// WriteSummary saves the run's action summary as summary.txt.
func (om *OutputManager) WriteSummary(text string) error {
	if om == nil {
		return nil
	}
	if err := os.WriteFile(filepath.Join(om.dir, "summary.txt"), []byte(text+"\n"), 0644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.epochsFile, om.actionsFile, om.perfFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
