// Package ytdlp wraps the yt-dlp binary for session media downloads,
// including the mp4 remux fallback HLS streams occasionally need.
package ytdlp
