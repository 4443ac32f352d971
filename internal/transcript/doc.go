// Package transcript renders completed transcriptions as markdown files
// with a session metadata header.
package transcript
