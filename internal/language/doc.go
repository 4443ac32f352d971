// Package language provides language code normalization and display names.
//
// The transcription pipeline meets languages in three shapes: the configured
// hint (validated as ISO 639-1), whisper's detected language (code or word
// form), and the human-readable name shown in transcript headers. All
// conversions between those shapes live here.
package language
