package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/mwidera/plenum/internal/services"
)

// Status represents the lifecycle of a catalog item in the pipeline.
type Status string

const (
	StatusPending      Status = "pending"
	StatusFetching     Status = "fetching"
	StatusConverting   Status = "converting"
	StatusTranscribing Status = "transcribing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusFetching,
	StatusConverting,
	StatusTranscribing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus validates a persisted status string.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return status, nil
}

// IsProcessing reports whether the status is a non-terminal in-progress state.
// A record left in one of these states marks a run that was interrupted
// mid-stage; selection treats it as retryable from the start of the pipeline.
func (s Status) IsProcessing() bool {
	switch s {
	case StatusFetching, StatusConverting, StatusTranscribing:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status ends the pipeline for an item.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is the durable processing state for one catalog identifier.
type Record struct {
	Identifier    string             `json:"identifier"`
	Status        Status             `json:"status"`
	AttemptCount  int                `json:"attempt_count"`
	LastErrorKind services.ErrorKind `json:"last_error_kind,omitempty"`
	LastError     string             `json:"last_error,omitempty"`
	LastAttempt   *time.Time         `json:"last_attempt_time,omitempty"`
	CompletedAt   *time.Time         `json:"completed_time,omitempty"`
	ArtifactPath  string             `json:"artifact_path,omitempty"`
}

// NewRecord returns the default Pending record for an identifier.
func NewRecord(identifier string) Record {
	return Record{Identifier: identifier, Status: StatusPending}
}

// MarkStage moves the record into an in-progress stage status and stamps the
// attempt time. The attempt counter only moves on failure.
func (r *Record) MarkStage(status Status, now time.Time) {
	r.Status = status
	ts := now.UTC()
	r.LastAttempt = &ts
}

// MarkCompleted records a successful pipeline run. The artifact path is
// required: a Completed record without an artifact violates the store
// invariants and would break resume semantics.
func (r *Record) MarkCompleted(artifactPath string, now time.Time) {
	r.Status = StatusCompleted
	r.ArtifactPath = artifactPath
	ts := now.UTC()
	r.CompletedAt = &ts
	if r.AttemptCount < 1 {
		r.AttemptCount = 1
	}
	r.LastErrorKind = ""
	r.LastError = ""
}

// MarkFailed records a failed attempt: status Failed, classified kind, and an
// incremented attempt counter. The counter never decreases.
func (r *Record) MarkFailed(kind services.ErrorKind, message string, now time.Time) {
	r.Status = StatusFailed
	if kind == "" {
		kind = services.KindUnknown
	}
	r.LastErrorKind = kind
	r.LastError = strings.TrimSpace(message)
	r.AttemptCount++
	ts := now.UTC()
	r.LastAttempt = &ts
}

// ResetForRetry returns the record to Pending for a fresh pipeline pass while
// keeping the accumulated attempt history.
func (r *Record) ResetForRetry() {
	r.Status = StatusPending
	r.LastErrorKind = ""
	r.LastError = ""
}

// Validate checks the persisted record invariants after load.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Identifier) == "" {
		return fmt.Errorf("record missing identifier")
	}
	if _, ok := statusSet[r.Status]; !ok {
		return fmt.Errorf("record %s: unknown status %q", r.Identifier, r.Status)
	}
	if r.AttemptCount < 0 {
		return fmt.Errorf("record %s: negative attempt count %d", r.Identifier, r.AttemptCount)
	}
	if r.Status == StatusCompleted {
		if strings.TrimSpace(r.ArtifactPath) == "" {
			return fmt.Errorf("record %s: completed without artifact path", r.Identifier)
		}
		if r.AttemptCount < 1 {
			return fmt.Errorf("record %s: completed with zero attempts", r.Identifier)
		}
	}
	if r.Status == StatusFailed && r.LastErrorKind == "" {
		return fmt.Errorf("record %s: failed without error kind", r.Identifier)
	}
	return nil
}
