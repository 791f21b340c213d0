package evaluation

import (
	"regexp"
	"strings"

	"github.com/artdocent/docent/internal/models"
)

// Fields scored for every record, in report order.
var Fields = []string{"name", "artist", "year", "medium"}

// FieldComparison is the score of one extracted field against the label.
type FieldComparison struct {
	Expected string  `yaml:"expected"`
	Actual   string  `yaml:"actual"`
	Score    float64 `yaml:"score"`
	Distance int     `yaml:"distance"`
	Match    string  `yaml:"match"`
}

// Comparison scores one identification against its label.
type Comparison struct {
	Fields       map[string]FieldComparison `yaml:"fields"`
	OverallScore float64                    `yaml:"overall_score"`
	Matched      int                        `yaml:"matched"`
	Missing      int                        `yaml:"missing"`
}

// Compare scores id against reference. Fields absent from the label are
// excluded from the overall score.
func Compare(reference Record, id models.Identification) *Comparison {
	c := &Comparison{Fields: make(map[string]FieldComparison, len(Fields))}

	pairs := map[string][2]string{
		"name":   {reference.Name, id.Name},
		"artist": {reference.Artist, id.Artist},
		"year":   {reference.Year, id.Year},
		"medium": {reference.Medium, id.Medium},
	}

	total, counted := 0.0, 0
	for _, field := range Fields {
		fc := compareField(pairs[field][0], pairs[field][1])
		c.Fields[field] = fc

		switch fc.Match {
		case "no_reference":
			continue
		case "missing":
			c.Missing++
		}
		if fc.Score >= 0.8 {
			c.Matched++
		}
		total += fc.Score
		counted++
	}

	if counted > 0 {
		c.OverallScore = total / float64(counted)
	}
	return c
}

// compareField scores actual against expected: 1.0 for a normalized exact
// match, 0.8 when one contains the other, otherwise Levenshtein similarity.
func compareField(expected, actual string) FieldComparison {
	comp := FieldComparison{Expected: expected, Actual: actual}

	if !models.Known(actual) {
		actual = ""
	}
	expNorm := normalizeText(expected)
	actNorm := normalizeText(actual)

	switch {
	case expNorm == "":
		comp.Match = "no_reference"
		return comp
	case actNorm == "":
		comp.Distance = len([]rune(expNorm))
		comp.Match = "missing"
		return comp
	case expNorm == actNorm:
		comp.Score = 1.0
		comp.Match = "exact"
		return comp
	}

	comp.Distance = levenshteinDistance(expNorm, actNorm)
	if strings.Contains(actNorm, expNorm) || strings.Contains(expNorm, actNorm) {
		comp.Score = 0.8
		comp.Match = "substring"
		return comp
	}

	maxLen := max(len([]rune(expNorm)), len([]rune(actNorm)))
	comp.Score = 1.0 - float64(comp.Distance)/float64(maxLen)

	switch {
	case comp.Score > 0.9:
		comp.Match = "fuzzy_high"
	case comp.Score > 0.7:
		comp.Match = "fuzzy_medium"
	case comp.Score > 0.5:
		comp.Match = "fuzzy_low"
	default:
		comp.Match = "no_match"
	}
	return comp
}

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

func normalizeText(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// levenshteinDistance counts rune edits, so accented names score
// sensibly.
func levenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
