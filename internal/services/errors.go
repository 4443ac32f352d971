package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSelection  = errors.New("invalid selection")
	ErrStoreCorrupt      = errors.New("progress store corrupt")
	ErrNetwork           = errors.New("network error")
	ErrFetchTimeout      = errors.New("fetch timeout")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyResult       = errors.New("empty transcript")
	ErrTranscription     = errors.New("transcription error")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrExternalTool      = errors.New("external tool error")
	ErrConfiguration     = errors.New("configuration error")
	ErrValidation        = errors.New("validation error")
)

// ErrorKind is the classified failure kind persisted on a processing record.
type ErrorKind string

const (
	KindNetworkError       ErrorKind = "network_error"
	KindFetchTimeout       ErrorKind = "fetch_timeout"
	KindUnsupportedFormat  ErrorKind = "unsupported_format"
	KindEmptyResult        ErrorKind = "empty_result"
	KindTranscriptionError ErrorKind = "transcription_error"
	KindResourceExhausted  ErrorKind = "resource_exhausted"
	KindUnknown            ErrorKind = "unknown"
)

// Retryable reports whether a persisted failure kind may re-enter the
// pipeline on a later run. Every classified kind is transient from the
// orchestrator's point of view; the attempt budget is what bounds retries.
func Retryable(kind ErrorKind) bool {
	switch kind {
	case KindNetworkError, KindFetchTimeout, KindUnsupportedFormat,
		KindEmptyResult, KindTranscriptionError, KindResourceExhausted, KindUnknown:
		return true
	default:
		return false
	}
}

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps a stage error to the kind recorded in last_error_kind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFetchTimeout):
		return KindFetchTimeout
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrNetwork):
		return KindNetworkError
	case errors.Is(err, ErrEmptyResult):
		return KindEmptyResult
	case errors.Is(err, ErrResourceExhausted):
		return KindResourceExhausted
	case errors.Is(err, ErrTranscription):
		return KindTranscriptionError
	default:
		return KindUnknown
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
