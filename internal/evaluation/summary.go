package evaluation

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/artdocent/docent/internal/models"
)

// Summary aggregates a run.
type Summary struct {
	TotalRecords    int                               `yaml:"total_records"`
	Succeeded       int                               `yaml:"succeeded"`
	Failed          int                               `yaml:"failed"`
	AverageScore    float64                           `yaml:"average_score"`
	MedianScore     float64                           `yaml:"median_score"`
	MinScore        float64                           `yaml:"min_score"`
	MaxScore        float64                           `yaml:"max_score"`
	FieldAccuracies map[string]float64                `yaml:"field_accuracies"`
	Calibration     map[models.Confidence]Calibration `yaml:"calibration"`
	AverageDuration time.Duration                     `yaml:"average_duration"`
}

// Calibration shows how well a confidence level predicts correctness.
type Calibration struct {
	Count        int     `yaml:"count"`
	AverageScore float64 `yaml:"average_score"`

	// NameArtistHits counts records whose name and artist both matched.
	NameArtistHits int `yaml:"name_artist_hits"`
}

// Summarize aggregates results.
func Summarize(results []Result) *Summary {
	s := &Summary{
		TotalRecords:    len(results),
		FieldAccuracies: make(map[string]float64),
		Calibration:     make(map[models.Confidence]Calibration),
	}

	var scores []float64
	var total time.Duration
	fieldScores := make(map[string][]float64)
	calScores := make(map[models.Confidence][]float64)

	for _, r := range results {
		total += r.Duration
		if r.Error != "" || r.Comparison == nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		scores = append(scores, r.Comparison.OverallScore)

		for field, fc := range r.Comparison.Fields {
			if fc.Match == "no_reference" {
				continue
			}
			fieldScores[field] = append(fieldScores[field], fc.Score)
		}

		conf := r.Identification.Confidence
		cal := s.Calibration[conf]
		cal.Count++
		if r.Comparison.Fields["name"].Score >= 0.8 && r.Comparison.Fields["artist"].Score >= 0.8 {
			cal.NameArtistHits++
		}
		s.Calibration[conf] = cal
		calScores[conf] = append(calScores[conf], r.Comparison.OverallScore)
	}

	if len(results) > 0 {
		s.AverageDuration = total / time.Duration(len(results))
	}

	if len(scores) > 0 {
		s.AverageScore = mean(scores)

		sort.Float64s(scores)
		mid := len(scores) / 2
		if len(scores)%2 == 0 {
			s.MedianScore = (scores[mid-1] + scores[mid]) / 2
		} else {
			s.MedianScore = scores[mid]
		}
		s.MinScore = scores[0]
		s.MaxScore = scores[len(scores)-1]
	}

	for field, fs := range fieldScores {
		s.FieldAccuracies[field] = mean(fs)
	}
	for conf, cs := range calScores {
		cal := s.Calibration[conf]
		cal.AverageScore = mean(cs)
		s.Calibration[conf] = cal
	}

	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var total float64
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}

// Print writes a human-readable summary.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintln(w, "Evaluation Summary")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Total Records:      %d\n", s.TotalRecords)
	fmt.Fprintf(w, "Succeeded:          %d\n", s.Succeeded)
	fmt.Fprintf(w, "Failed:             %d\n", s.Failed)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Average Score:      %.2f%%\n", s.AverageScore*100)
	fmt.Fprintf(w, "Median Score:       %.2f%%\n", s.MedianScore*100)
	fmt.Fprintf(w, "Min Score:          %.2f%%\n", s.MinScore*100)
	fmt.Fprintf(w, "Max Score:          %.2f%%\n", s.MaxScore*100)
	fmt.Fprintf(w, "Average Duration:   %s\n", s.AverageDuration.Round(time.Millisecond))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Field Accuracies:")
	for _, field := range Fields {
		if acc, ok := s.FieldAccuracies[field]; ok {
			fmt.Fprintf(w, "  %s: %.2f%%\n", field, acc*100)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Confidence Calibration:")
	for _, conf := range []models.Confidence{models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow} {
		cal, ok := s.Calibration[conf]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %-6s n=%d avg=%.2f%% name+artist=%d\n", conf, cal.Count, cal.AverageScore*100, cal.NameArtistHits)
	}
	fmt.Fprintln(w, "========================================")
}
