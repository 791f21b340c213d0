package evaluation

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RunConfig records how a run was produced.
type RunConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	DatasetPath string  `yaml:"dataset_path"`
	SampleSize  int     `yaml:"sample_size"`
	Concurrency int     `yaml:"concurrency"`
	Timestamp   string  `yaml:"timestamp"`
}

// Report is the YAML document written at the end of a run.
type Report struct {
	Config  RunConfig `yaml:"config"`
	Summary *Summary  `yaml:"summary"`
	Results []Result  `yaml:"results"`
}

// NewReport assembles a report for results.
func NewReport(cfg RunConfig, results []Result) *Report {
	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format(time.RFC3339)
	}
	cfg.SampleSize = len(results)
	return &Report{Config: cfg, Summary: Summarize(results), Results: results}
}

// DefaultReportPath is evals/<provider>_<timestamp>.yaml.
func DefaultReportPath(provider string, now time.Time) string {
	return filepath.Join("evals", fmt.Sprintf("%s_%s.yaml", provider, now.Format("2006-01-02_15-04-05")))
}

// Save writes the report to path, creating parent directories.
func (r *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
