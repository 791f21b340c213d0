package identify

import (
	"regexp"
	"strings"

	"github.com/artdocent/docent/internal/models"
)

// labelPattern matches "Label: value" on a line of its own, ignoring case
// and tolerating markdown emphasis around the label. Only a balanced bold
// marker is stripped from the value, so "Untitled_" keeps its underscore.
func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t>*_-]*` + label + `[ \t*_]*:[ \t]*(?:\*\*|__)?[ \t]*(.*?)[ \t]*(?:\*\*|__)?[ \t]*\r?$`)
}

var (
	namePattern       = labelPattern("name")
	artistPattern     = labelPattern("artist")
	yearPattern       = labelPattern("year")
	mediumPattern     = labelPattern("medium")
	confidencePattern = labelPattern("confidence")
)

// Parse extracts an identification from a free-text model answer. It never
// fails: missing name or artist become Unknown, missing year or medium stay
// empty and an absent or unrecognized confidence becomes low. The second
// return lists the fields that were defaulted.
func Parse(raw string) (models.Identification, []string) {
	var defaulted []string

	id := models.Identification{RawText: raw}

	id.Name = firstMatch(namePattern, raw)
	if id.Name == "" {
		id.Name = models.Unknown
		defaulted = append(defaulted, "name")
	}

	id.Artist = firstMatch(artistPattern, raw)
	if id.Artist == "" {
		id.Artist = models.Unknown
		defaulted = append(defaulted, "artist")
	}

	if year := firstMatch(yearPattern, raw); models.Known(year) {
		id.Year = year
	}
	if medium := firstMatch(mediumPattern, raw); models.Known(medium) {
		id.Medium = medium
	}

	token := confidenceToken(firstMatch(confidencePattern, raw))
	id.Confidence = models.ParseConfidence(token)
	if !strings.EqualFold(token, string(id.Confidence)) {
		defaulted = append(defaulted, "confidence")
	}

	return id, defaulted
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// confidenceToken keeps the first word of the value, stripped of trailing
// punctuation, so "High." and "medium (fairly sure)" still match.
func confidenceToken(v string) string {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ".,;:!)]*")
}
