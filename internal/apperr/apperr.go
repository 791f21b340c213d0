// Package apperr defines the error classes surfaced by identification and
// conversation flows. Callers classify with errors.As or Classify.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the coarse class of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConfiguration
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// ValidationError reports bad, missing or oversized input. The user can fix
// it and resubmit.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConfigurationError reports a deployment problem such as a missing
// credential. Hint tells an operator what to fix.
type ConfigurationError struct {
	Message string
	Hint    string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Detail returns the upstream message attached to the error, if any.
func (e *ConfigurationError) Detail() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// UpstreamError reports a failure of the vision model or the voice agent.
// It is transient from the user's point of view.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Detail returns the upstream message attached to the error, if any.
func (e *UpstreamError) Detail() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Validation builds a ValidationError.
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Configuration builds a ConfigurationError with an operator hint.
func Configuration(message, hint string, err error) error {
	return &ConfigurationError{Message: message, Hint: hint, Err: err}
}

// Upstream builds an UpstreamError wrapping err.
func Upstream(message string, err error) error {
	return &UpstreamError{Message: message, Err: err}
}

// Classify returns the Kind of err, looking through wrapping.
func Classify(err error) Kind {
	var (
		ve *ValidationError
		ce *ConfigurationError
		ue *UpstreamError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ce):
		return KindConfiguration
	case errors.As(err, &ue):
		return KindUpstream
	default:
		return KindUnknown
	}
}

// HTTPStatus maps a Kind to the status code used by the HTTP surface.
func HTTPStatus(k Kind) int {
	if k == KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
