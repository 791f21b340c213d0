package evaluation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/artdocent/docent/internal/identify"
	"github.com/artdocent/docent/internal/models"
)

// pngHeader is enough for mimetype to detect image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")

type fakeIdentifier struct {
	mu     sync.Mutex
	seen   []string
	byType map[string]models.Identification
}

func (f *fakeIdentifier) Identify(_ context.Context, p models.ImagePayload) (*identify.Result, error) {
	f.mu.Lock()
	f.seen = append(f.seen, p.MIMEType)
	f.mu.Unlock()

	id, ok := f.byType[p.MIMEType]
	if !ok {
		return nil, errors.New("unrecognized frame")
	}
	return &identify.Result{Identification: id}, nil
}

func TestRunnerRun(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "nighthawks.png"), pngHeader, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}

	ident := &fakeIdentifier{byType: map[string]models.Identification{
		"image/png": {Name: "Nighthawks", Artist: "Edward Hopper", Confidence: models.ConfidenceHigh},
	}}
	runner := &Runner{Identifier: ident, Concurrency: 2, BaseDir: dir}

	records := []Record{
		{ID: "1", ImagePath: "nighthawks.png", Name: "Nighthawks", Artist: "Edward Hopper"},
		{ID: "2", ImagePath: "notes.txt", Name: "The Kiss", Artist: "Gustav Klimt"},
		{ID: "3", Name: "No Image"},
		{ID: "4", ImagePath: "missing.png", Name: "Missing"},
	}

	results := runner.Run(context.Background(), records)

	if len(results) != len(records) {
		t.Fatalf("Expected %d results, got %d", len(records), len(results))
	}
	for i, r := range results {
		if r.ID != records[i].ID {
			t.Errorf("Result %d out of order: %s", i, r.ID)
		}
	}
	if results[0].Error != "" || results[0].Comparison.OverallScore != 1 {
		t.Errorf("Expected perfect first result, got %+v", results[0])
	}
	if results[1].Error != "unrecognized frame" {
		t.Errorf("Expected identifier error, got %q", results[1].Error)
	}
	if !strings.Contains(results[2].Error, "no image_path or image_url") {
		t.Errorf("Expected missing image error, got %q", results[2].Error)
	}
	if results[3].Error == "" {
		t.Error("Expected read error for missing file")
	}
	if len(ident.seen) != 2 {
		t.Errorf("Expected 2 identify calls, got %d", len(ident.seen))
	}
}
