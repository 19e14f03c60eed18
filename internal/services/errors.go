package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransient       = errors.New("transient failure")
	ErrRateLimited     = errors.New("rate limited")
	ErrAuthExpired     = errors.New("authentication expired")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrInvalidQuery    = errors.New("invalid query")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later disposition classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Disposition describes how a caller should react to a failed API call.
type Disposition int

const (
	// DispositionRetry marks failures worth retrying with backoff.
	DispositionRetry Disposition = iota
	// DispositionEmpty marks failures that degrade to an empty result set.
	DispositionEmpty
	// DispositionFatal marks failures that must surface to the caller.
	DispositionFatal
)

// Classify maps an error to the reaction the request gate should take.
// Rate limiting and generic transient failures are retryable; malformed
// queries and missing records degrade to empty results; oversized payloads
// indicate a caller-side bug and are fatal.
func Classify(err error) Disposition {
	switch {
	case err == nil:
		return DispositionEmpty
	case errors.Is(err, ErrPayloadTooLarge), errors.Is(err, ErrConfiguration):
		return DispositionFatal
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrNotFound):
		return DispositionEmpty
	default:
		return DispositionRetry
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
