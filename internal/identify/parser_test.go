package identify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artdocent/docent/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected models.Identification
	}{
		{
			name:  "all fields",
			input: "Name: Father Hidalgo\nArtist: José Clemente Orozco\nYear: 1949\nMedium: Fresco\nConfidence: high",
			expected: models.Identification{
				Name:       "Father Hidalgo",
				Artist:     "José Clemente Orozco",
				Year:       "1949",
				Medium:     "Fresco",
				Confidence: models.ConfidenceHigh,
			},
		},
		{
			name:  "empty text",
			input: "",
			expected: models.Identification{
				Name:       models.Unknown,
				Artist:     models.Unknown,
				Confidence: models.ConfidenceLow,
			},
		},
		{
			name:  "missing name and confidence",
			input: "Artist: Frida Kahlo\nYear: 1940",
			expected: models.Identification{
				Name:       models.Unknown,
				Artist:     "Frida Kahlo",
				Year:       "1940",
				Confidence: models.ConfidenceLow,
			},
		},
		{
			name:  "labels are case-insensitive",
			input: "NAME: The Kiss\nartist: Gustav Klimt\nConfidence: MEDIUM",
			expected: models.Identification{
				Name:       "The Kiss",
				Artist:     "Gustav Klimt",
				Confidence: models.ConfidenceMedium,
			},
		},
		{
			name:  "unknown year and medium stay empty",
			input: "Name: Untitled\nArtist: Unknown\nYear: Unknown\nMedium: unknown\nConfidence: low",
			expected: models.Identification{
				Name:       "Untitled",
				Artist:     "Unknown",
				Confidence: models.ConfidenceLow,
			},
		},
		{
			name:  "unrecognized confidence falls back to low",
			input: "Name: Guernica\nArtist: Pablo Picasso\nConfidence: certain",
			expected: models.Identification{
				Name:       "Guernica",
				Artist:     "Pablo Picasso",
				Confidence: models.ConfidenceLow,
			},
		},
		{
			name:  "prose around labels and CRLF",
			input: "Here is what I see.\r\n\r\n**Name:** The Persistence of Memory\r\n**Artist:** Salvador Dalí\r\nConfidence: High.\r\n",
			expected: models.Identification{
				Name:       "The Persistence of Memory",
				Artist:     "Salvador Dalí",
				Confidence: models.ConfidenceHigh,
			},
		},
		{
			name:  "label must start the line",
			input: "The artist's name: nobody knows\nConfidence: low",
			expected: models.Identification{
				Name:       models.Unknown,
				Artist:     models.Unknown,
				Confidence: models.ConfidenceLow,
			},
		},
		{
			name:  "bold value markers are stripped",
			input: "Name: **The Starry Night**\nArtist: __Vincent van Gogh__",
			expected: models.Identification{
				Name:       "The Starry Night",
				Artist:     "Vincent van Gogh",
				Confidence: models.ConfidenceLow,
			},
		},
		{
			name:  "trailing underscore and asterisk are kept",
			input: "Name: Untitled_\nArtist: Anonymous*",
			expected: models.Identification{
				Name:       "Untitled_",
				Artist:     "Anonymous*",
				Confidence: models.ConfidenceLow,
			},
		},
		{
			name:  "empty value is unknown",
			input: "Name:   \nArtist: Hokusai",
			expected: models.Identification{
				Name:       models.Unknown,
				Artist:     "Hokusai",
				Confidence: models.ConfidenceLow,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Parse(tt.input)
			tt.expected.RawText = tt.input
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseConfidenceCase(t *testing.T) {
	for _, token := range []string{"high", "High", "HIGH", "hIgH"} {
		got, _ := Parse("Confidence: " + token)
		assert.Equal(t, models.ConfidenceHigh, got.Confidence, "token %q", token)
	}
	for _, token := range []string{"very", "hi", "100%", "-"} {
		got, _ := Parse("Confidence: " + token)
		assert.Equal(t, models.ConfidenceLow, got.Confidence, "token %q", token)
	}
}

func TestParseReportsDefaultedFields(t *testing.T) {
	_, defaulted := Parse("Artist: Rembrandt\nConfidence: medium")
	assert.Equal(t, []string{"name"}, defaulted)

	_, defaulted = Parse("Name: X\nArtist: Y\nConfidence: high")
	assert.Empty(t, defaulted)
}
