// Package whisper wraps the whisper CLI for speech-to-text over extracted
// session audio.
package whisper
