// Package artwork builds the conversation-ready artwork record and holds
// the current one for a session.
package artwork

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/artdocent/docent/internal/models"
)

var whitespace = regexp.MustCompile(`\s+`)

// FromIdentification enriches an identification into the record handed to
// the conversation layer. The narrative is never empty.
func FromIdentification(id models.Identification) models.Artwork {
	year := id.Year
	if year == "" {
		year = models.Unknown
	}
	medium := id.Medium
	if medium == "" {
		medium = models.Unknown
	}

	return models.Artwork{
		ID:                  Slug(id.Name, id.Year),
		Name:                id.Name,
		Artist:              id.Artist,
		Year:                year,
		Medium:              medium,
		Confidence:          id.Confidence,
		Description:         id.RawText,
		ConversationContext: Narrative(id),
	}
}

// Slug derives a stable identifier from the artwork name and year, e.g.
// "father-hidalgo-1949".
func Slug(name, year string) string {
	if !models.Known(year) {
		year = "unknown"
	}
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-") + "-" + year
}

// Narrative concatenates the structured fields with the raw model answer.
func Narrative(id models.Identification) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "This artwork is %q by %s", id.Name, id.Artist)
	if id.Year != "" {
		fmt.Fprintf(&sb, ", created in %s", id.Year)
	}
	if id.Medium != "" {
		fmt.Fprintf(&sb, ", using %s", id.Medium)
	}
	sb.WriteString(".\n\n")

	if raw := strings.TrimSpace(id.RawText); raw != "" {
		fmt.Fprintf(&sb, "Based on the image analysis: %s\n\n", raw)
	}

	sb.WriteString("Discuss this artwork naturally with the user, sharing your knowledge about the piece, " +
		"the artist, the historical context, and answering any questions they may have.")
	return sb.String()
}

// Summary renders the single sentence the voice agent reads back, leaving
// out unknown year and medium.
func Summary(a models.Artwork) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Artwork details: %q by %s", a.Name, a.Artist)
	if models.Known(a.Year) {
		fmt.Fprintf(&sb, " (%s)", a.Year)
	}
	sb.WriteString(".")
	if models.Known(a.Medium) {
		fmt.Fprintf(&sb, " Medium: %s.", a.Medium)
	}
	return sb.String()
}
