package ffmpegx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mwidera/plenum/internal/logging"
	"github.com/mwidera/plenum/internal/services"
)

// DefaultBinary is the ffmpeg executable resolved from PATH when no override
// is configured.
const DefaultBinary = "ffmpeg"

type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

// Extractor converts downloaded session media into transcription-ready audio.
type Extractor struct {
	binary string
	runner commandRunner
	logger *slog.Logger
}

// NewExtractor constructs an extractor around the given ffmpeg binary.
func NewExtractor(binary string, logger *slog.Logger) *Extractor {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Extractor) WithCommandRunner(runner commandRunner) {
	e.runner = runner
}

// Binary returns the configured executable for health checks.
func (e *Extractor) Binary() string {
	return e.binary
}

// SkipConversion reports whether the media file can feed whisper directly.
// Audio-only containers skip the extraction pass entirely.
func SkipConversion(mediaPath string) bool {
	switch strings.ToLower(filepath.Ext(mediaPath)) {
	case ".wav", ".mp3", ".m4a":
		return true
	}
	return false
}

// ExtractAudio demuxes the audio track into a 16 kHz mono PCM WAV, the input
// whisper handles fastest. Returns the path of the produced file.
func (e *Extractor) ExtractAudio(ctx context.Context, mediaPath, audioDir string) (string, error) {
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "ffmpeg", "extract audio",
			fmt.Sprintf("create audio directory %s", audioDir), err)
	}

	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	wavPath := filepath.Join(audioDir, base+".wav")

	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", mediaPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		wavPath,
	}
	output, err := e.run(ctx, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrFetchTimeout, "ffmpeg", "extract audio",
				fmt.Sprintf("conversion of %s interrupted", mediaPath), ctx.Err())
		}
		return "", services.Wrap(services.ErrUnsupportedFormat, "ffmpeg", "extract audio",
			fmt.Sprintf("ffmpeg failed on %s: %s", mediaPath, lastLine(output)), err)
	}

	info, err := os.Stat(wavPath)
	if err != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrUnsupportedFormat, "ffmpeg", "extract audio",
			fmt.Sprintf("ffmpeg produced no audio for %s", mediaPath), err)
	}
	e.logger.Debug("audio extracted",
		logging.String("source", mediaPath),
		logging.String("wav", wavPath),
		logging.Int64("bytes", info.Size()))
	return wavPath, nil
}

func (e *Extractor) run(ctx context.Context, args ...string) (string, error) {
	if e.runner != nil {
		return e.runner(ctx, e.binary, args...)
	}
	cmd := exec.CommandContext(ctx, e.binary, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
