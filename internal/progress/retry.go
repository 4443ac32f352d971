package progress

import "github.com/mwidera/plenum/internal/services"

// IsRetryEligible reports whether a Failed record may re-enter the pipeline.
// Attempt accounting is per-identifier and accumulates across program runs
// via the persisted record; this layer has no backoff of its own.
func IsRetryEligible(rec Record, maxAttempts int) bool {
	if rec.Status != StatusFailed {
		return false
	}
	if !services.Retryable(rec.LastErrorKind) {
		return false
	}
	return rec.AttemptCount < maxAttempts
}

// IsExhausted reports whether a Failed record has used its whole attempt
// budget. Exhausted items are excluded from the "failed" selection and
// surfaced distinctly in run statistics; `plenum retry --exhausted` is the
// manual reset path.
func IsExhausted(rec Record, maxAttempts int) bool {
	return rec.Status == StatusFailed && rec.AttemptCount >= maxAttempts
}
