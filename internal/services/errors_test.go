package services_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mwidera/plenum/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrNetwork, "fetcher", "download", "listing page", base)

	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected wrapped error to match ErrNetwork, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to retain cause, got %v", err)
	}
	want := "network error: fetcher: download: listing page: connection refused"
	if err.Error() != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrEmptyResult, "transcriber", "", "no speech detected", nil)
	if !errors.Is(err, services.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if got := err.Error(); got != "empty transcript: transcriber: no speech detected" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestWrapNilMarkerDefaultsToExternalTool(t *testing.T) {
	err := services.Wrap(nil, "whisper", "run", "exit status 1", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default ErrExternalTool marker, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.ErrorKind
	}{
		{"nil", nil, services.ErrorKind("")},
		{"network", services.Wrap(services.ErrNetwork, "fetcher", "download", "", nil), services.KindNetworkError},
		{"timeout", services.Wrap(services.ErrFetchTimeout, "fetcher", "download", "deadline", nil), services.KindFetchTimeout},
		{"format", services.Wrap(services.ErrUnsupportedFormat, "fetcher", "inspect", "", nil), services.KindUnsupportedFormat},
		{"empty", services.Wrap(services.ErrEmptyResult, "transcriber", "", "", nil), services.KindEmptyResult},
		{"exhausted", services.Wrap(services.ErrResourceExhausted, "transcriber", "", "oom", nil), services.KindResourceExhausted},
		{"transcription", services.Wrap(services.ErrTranscription, "transcriber", "", "", nil), services.KindTranscriptionError},
		{"unwrapped", fmt.Errorf("plain failure"), services.KindUnknown},
		{"tool", services.Wrap(services.ErrExternalTool, "ffmpeg", "extract", "", nil), services.KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
