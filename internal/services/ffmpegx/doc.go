// Package ffmpegx wraps ffmpeg audio extraction: session video in, 16 kHz
// mono WAV out.
package ffmpegx
