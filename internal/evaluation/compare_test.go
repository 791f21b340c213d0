package evaluation

import (
	"math"
	"testing"

	"github.com/artdocent/docent/internal/models"
)

func TestCompareField(t *testing.T) {
	tests := []struct {
		name      string
		expected  string
		actual    string
		wantMatch string
		wantScore float64
	}{
		{"exact ignoring case and punctuation", "Nighthawks", "nighthawks.", "exact", 1.0},
		{"substring", "The Starry Night", "Starry Night", "substring", 0.8},
		{"no reference", "", "Oil on canvas", "no_reference", 0},
		{"missing", "1942", "", "missing", 0},
		{"unknown counts as missing", "Fresco", "Unknown", "missing", 0},
		{"one edit", "Edward Hopper", "Edward Hoper", "fuzzy_high", 1 - 1.0/13},
		{"unrelated", "Gustav Klimt", "Frida Kahlo", "no_match", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compareField(tt.expected, tt.actual)
			if got.Match != tt.wantMatch {
				t.Errorf("Expected match %s, got %s", tt.wantMatch, got.Match)
			}
			if tt.wantScore >= 0 && math.Abs(got.Score-tt.wantScore) > 1e-9 {
				t.Errorf("Expected score %.4f, got %.4f", tt.wantScore, got.Score)
			}
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"orozco", "orozco", 0},
		{"josé", "jose", 1},
	}

	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	reference := Record{
		ID:     "1",
		Name:   "Miguel Hidalgo y Costilla",
		Artist: "José Clemente Orozco",
		Year:   "1937",
	}
	id := models.Identification{
		Name:       "Miguel Hidalgo y Costilla",
		Artist:     "José Clemente Orozco",
		Year:       "Unknown",
		Medium:     "Fresco",
		Confidence: models.ConfidenceHigh,
	}

	c := Compare(reference, id)

	if c.Fields["medium"].Match != "no_reference" {
		t.Errorf("Expected medium to have no reference, got %s", c.Fields["medium"].Match)
	}
	if c.Missing != 1 {
		t.Errorf("Expected 1 missing field, got %d", c.Missing)
	}
	if c.Matched != 2 {
		t.Errorf("Expected 2 matched fields, got %d", c.Matched)
	}
	if want := 2.0 / 3.0; math.Abs(c.OverallScore-want) > 1e-9 {
		t.Errorf("Expected overall score %.4f, got %.4f", want, c.OverallScore)
	}
}
