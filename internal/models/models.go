package models

import "strings"

// Unknown is substituted for any identification field the model did not
// provide.
const Unknown = "Unknown"

// Confidence is the model's self-reported certainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence matches a token case-insensitively against the closed
// set. Anything else is low.
func ParseConfidence(token string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(token))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ImagePayload is a single captured still frame.
type ImagePayload struct {
	// Encoded is base64 image data, optionally prefixed with a data URI header.
	Encoded string `json:"-"`
	// MIMEType is the encoding tag, e.g. image/jpeg. It may be empty until
	// the payload has been validated.
	MIMEType string `json:"mime_type,omitempty"`
}

// Exceeds reports whether the decoded size estimated from the encoded
// length (3 bytes per 4 base64 characters) is over limit bytes.
func (p ImagePayload) Exceeds(limit int) bool {
	return len(p.Encoded)*3 > limit*4
}

// Identification is the structured answer extracted from a vision model.
// Name and Artist are never empty; Year and Medium are empty when absent.
type Identification struct {
	Name       string     `json:"name" yaml:"name"`
	Artist     string     `json:"artist" yaml:"artist"`
	Year       string     `json:"year,omitempty" yaml:"year,omitempty"`
	Medium     string     `json:"medium,omitempty" yaml:"medium,omitempty"`
	Confidence Confidence `json:"confidence" yaml:"confidence"`
	RawText    string     `json:"-" yaml:"raw_text"`
}

// Artwork is the identification enriched for the conversation layer.
type Artwork struct {
	ID                  string     `json:"id" yaml:"id"`
	Name                string     `json:"name" yaml:"name"`
	Artist              string     `json:"artist" yaml:"artist"`
	Year                string     `json:"year" yaml:"year"`
	Medium              string     `json:"medium" yaml:"medium"`
	Confidence          Confidence `json:"confidence" yaml:"confidence"`
	ImageURL4K          string     `json:"imageUrl4k" yaml:"image_url_4k"`
	WikiArtURL          string     `json:"wikiartUrl" yaml:"wikiart_url"`
	Description         string     `json:"description" yaml:"description"`
	ConversationContext string     `json:"conversationContext" yaml:"conversation_context"`
}

// Known reports whether v carries real information rather than the
// Unknown placeholder.
func Known(v string) bool {
	return v != "" && !strings.EqualFold(v, Unknown)
}
