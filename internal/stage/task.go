package stage

import (
	"time"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/progress"
)

// Task carries one catalog item through the fetch, convert and transcribe
// stages. Stages communicate by filling in the path fields; the orchestrator
// owns the Record and persists it between stage transitions.
type Task struct {
	Item   catalog.Item
	Record *progress.Record
	RunID  string

	// MediaPath is set by the fetch stage: the downloaded session video.
	MediaPath string
	// AudioPath is set by the convert stage: 16 kHz mono WAV ready for
	// transcription.
	AudioPath string
	// TranscriptPath is set by the transcribe stage: the final markdown
	// artifact recorded on the progress record.
	TranscriptPath string

	// Language is the transcription language actually used. Stays empty
	// until the transcribe stage runs; reflects autodetection when the
	// configured language is blank.
	Language string

	// Per-stage wall clock, reported in the transcript header.
	FetchDuration      time.Duration
	TranscribeDuration time.Duration
}

// Identifier is a convenience accessor for log fields.
func (t *Task) Identifier() string {
	return t.Item.Identifier
}
