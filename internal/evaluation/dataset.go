package evaluation

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Record is one labeled artwork photo.
type Record struct {
	ID        string `json:"id" parquet:"id"`
	ImagePath string `json:"image_path,omitempty" parquet:"image_path,optional"`
	ImageURL  string `json:"image_url,omitempty" parquet:"image_url,optional"`
	Name      string `json:"name" parquet:"name"`
	Artist    string `json:"artist" parquet:"artist"`
	Year      string `json:"year,omitempty" parquet:"year,optional"`
	Medium    string `json:"medium,omitempty" parquet:"medium,optional"`
}

// Loader reads labeled records from a JSONL or Parquet file.
type Loader struct {
	datasetPath string
}

func NewLoader(datasetPath string) *Loader {
	return &Loader{datasetPath: datasetPath}
}

// Dir is the directory relative image paths are resolved against.
func (l *Loader) Dir() string {
	return filepath.Dir(l.datasetPath)
}

// Load reads every record.
func (l *Loader) Load() ([]Record, error) {
	return l.LoadSample(0)
}

// LoadSample reads at most limit records; limit <= 0 reads all.
func (l *Loader) LoadSample(limit int) ([]Record, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".parquet":
		return l.loadParquet(limit)
	case ".jsonl", ".json":
		return l.loadJSONL(limit)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func (l *Loader) loadJSONL(limit int) ([]Record, error) {
	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, record)

		if limit > 0 && len(records) >= limit {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Loaded JSONL dataset", "path", l.datasetPath, "records", len(records))
	return records, nil
}

func (l *Loader) loadParquet(limit int) ([]Record, error) {
	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	var records []Record
	rows := make([]Record, 128)
	for {
		n, err := reader.Read(rows)
		records = append(records, rows[:n]...)
		if limit > 0 && len(records) >= limit {
			records = records[:limit]
			break
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Loaded Parquet dataset", "path", l.datasetPath, "records", len(records), "row_groups", len(pf.RowGroups()))
	return records, nil
}
