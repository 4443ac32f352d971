package ffmpegx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwidera/plenum/internal/services"
)

func TestExtractAudioBuildsExpectedPipeline(t *testing.T) {
	audioDir := t.TempDir()
	extractor := NewExtractor("ffmpeg", nil)

	var gotArgs []string
	extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		gotArgs = args
		wavPath := args[len(args)-1]
		if err := os.WriteFile(wavPath, []byte("RIFF"), 0o644); err != nil {
			t.Fatal(err)
		}
		return "", nil
	})

	wavPath, err := extractor.ExtractAudio(context.Background(), "/media/sesja_67352.mp4", audioDir)
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if filepath.Base(wavPath) != "sesja_67352.wav" {
		t.Fatalf("unexpected wav path %q", wavPath)
	}

	joined := strings.Join(gotArgs, " ")
	for _, fragment := range []string{"-vn", "-ac 1", "-ar 16000", "-c:a pcm_s16le", "-nostdin", "-y"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in ffmpeg args: %v", fragment, gotArgs)
		}
	}
}

func TestExtractAudioFailureClassified(t *testing.T) {
	extractor := NewExtractor("ffmpeg", nil)
	extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		return "Invalid data found when processing input", fmt.Errorf("exit status 1")
	})

	_, err := extractor.ExtractAudio(context.Background(), "/media/broken.mp4", t.TempDir())
	if !errors.Is(err, services.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractAudioEmptyOutputIsError(t *testing.T) {
	extractor := NewExtractor("ffmpeg", nil)
	extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		// Claims success without writing anything.
		return "", nil
	})

	_, err := extractor.ExtractAudio(context.Background(), "/media/sesja_1.mp4", t.TempDir())
	if !errors.Is(err, services.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSkipConversion(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/a/sesja_1.wav", true},
		{"/a/sesja_1.MP3", true},
		{"/a/sesja_1.m4a", true},
		{"/a/sesja_1.mp4", false},
		{"/a/sesja_1.mkv", false},
		{"/a/sesja_1", false},
	}
	for _, tc := range cases {
		if got := SkipConversion(tc.path); got != tc.want {
			t.Fatalf("SkipConversion(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
