package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/logging"
	"github.com/mwidera/plenum/internal/services"
)

// DefaultBinary is the yt-dlp executable resolved from PATH when no override
// is configured.
const DefaultBinary = "yt-dlp"

// qualitySelector prefers a 720p mp4 rendition; council streams rarely offer
// more and whisper only needs the audio track anyway.
const qualitySelector = "bestvideo[height<=720][ext=mp4]+bestaudio/best[height<=720]/best"

const (
	maxFetchAttempts  = 3
	defaultRetryDelay = 5 * time.Second
)

type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

// Fetcher downloads session media with yt-dlp.
type Fetcher struct {
	binary     string
	runner     commandRunner
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewFetcher constructs a fetcher around the given yt-dlp binary.
func NewFetcher(binary string, logger *slog.Logger) *Fetcher {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{
		binary:     binary,
		retryDelay: defaultRetryDelay,
		logger:     logging.NewComponentLogger(logger, "ytdlp"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (f *Fetcher) WithCommandRunner(runner commandRunner) {
	f.runner = runner
}

// Binary returns the configured executable for health checks.
func (f *Fetcher) Binary() string {
	return f.binary
}

// Fetch downloads the session media into destDir and returns the resulting
// file path. The download is bounded by timeout; hitting it is reported as
// ErrFetchTimeout. Transient network failures are retried in here, so the
// caller sees at most one failure per pipeline attempt.
func (f *Fetcher) Fetch(ctx context.Context, item catalog.Item, destDir string, timeout time.Duration) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "ytdlp", "fetch",
			fmt.Sprintf("create media directory %s", destDir), err)
	}

	fetchCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	template := filepath.Join(destDir, "sesja_"+item.Identifier+".%(ext)s")
	args := []string{
		"-f", qualitySelector,
		"-o", template,
		"--no-progress",
		"--newline",
		item.SourceURL,
	}

	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		output, err := f.run(fetchCtx, args...)
		if err == nil {
			return f.locateOutput(destDir, item.Identifier)
		}

		if fetchCtx.Err() != nil {
			return "", services.Wrap(services.ErrFetchTimeout, "ytdlp", "fetch",
				fmt.Sprintf("download of %s exceeded %s", item.SourceURL, timeout), fetchCtx.Err())
		}

		if needsRemux(output) {
			f.logger.Info("retrying with mp4 remux",
				logging.String(logging.FieldItemID, item.Identifier))
			return f.fetchRemuxed(fetchCtx, item, template, destDir)
		}
		if isUnsupported(output) {
			return "", services.Wrap(services.ErrUnsupportedFormat, "ytdlp", "fetch",
				fmt.Sprintf("yt-dlp cannot handle %s: %s", item.SourceURL, tailLines(output, 3)), err)
		}

		lastErr = services.Wrap(services.ErrNetwork, "ytdlp", "fetch",
			fmt.Sprintf("download of %s failed: %s", item.SourceURL, tailLines(output, 3)), err)
		if attempt < maxFetchAttempts {
			f.logger.Warn("download failed, retrying",
				logging.String(logging.FieldItemID, item.Identifier),
				logging.Int(logging.FieldAttempt, attempt),
				logging.Error(err))
			if err := sleepCtx(fetchCtx, f.retryDelay); err != nil {
				return "", services.Wrap(services.ErrFetchTimeout, "ytdlp", "fetch",
					fmt.Sprintf("download of %s exceeded %s", item.SourceURL, timeout), err)
			}
		}
	}
	return "", lastErr
}

// fetchRemuxed re-runs the download remuxing into mp4 with stream copy. HLS
// sources deliver AAC in ADTS framing that mp4 containers refuse without the
// bitstream filter.
func (f *Fetcher) fetchRemuxed(ctx context.Context, item catalog.Item, template, destDir string) (string, error) {
	args := []string{
		"-f", qualitySelector,
		"-o", template,
		"--no-progress",
		"--newline",
		"--remux-video", "mp4",
		"--postprocessor-args", "ffmpeg:-c copy -bsf:a aac_adtstoasc",
		item.SourceURL,
	}
	output, err := f.run(ctx, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrFetchTimeout, "ytdlp", "fetch",
				fmt.Sprintf("remuxed download of %s timed out", item.SourceURL), ctx.Err())
		}
		return "", services.Wrap(services.ErrUnsupportedFormat, "ytdlp", "fetch",
			fmt.Sprintf("remuxed download of %s failed: %s", item.SourceURL, tailLines(output, 3)), err)
	}
	return f.locateOutput(destDir, item.Identifier)
}

// Cleanup removes downloaded artifacts best-effort. Missing files are fine;
// other failures are logged, never returned.
func (f *Fetcher) Cleanup(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("cleanup failed", logging.String("path", path), logging.Error(err))
		}
	}
}

func (f *Fetcher) run(ctx context.Context, args ...string) (string, error) {
	if f.runner != nil {
		return f.runner(ctx, f.binary, args...)
	}
	cmd := exec.CommandContext(ctx, f.binary, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// locateOutput resolves the file yt-dlp produced; the extension depends on
// the source container.
func (f *Fetcher) locateOutput(destDir, identifier string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(destDir, "sesja_"+identifier+".*"))
	if err != nil || len(matches) == 0 {
		return "", services.Wrap(services.ErrNetwork, "ytdlp", "fetch",
			fmt.Sprintf("download reported success but no media file for session %s in %s", identifier, destDir), err)
	}
	// Prefer the finished container over leftover .part files.
	for _, match := range matches {
		if filepath.Ext(match) != ".part" {
			return match, nil
		}
	}
	return "", services.Wrap(services.ErrNetwork, "ytdlp", "fetch",
		fmt.Sprintf("only partial downloads present for session %s", identifier), nil)
}

func needsRemux(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "requested formats are incompatible for merge") ||
		strings.Contains(lower, "malformed aac bitstream") ||
		strings.Contains(lower, "could not write header")
}

func isUnsupported(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "unsupported url") ||
		strings.Contains(lower, "requested format is not available") ||
		strings.Contains(lower, "no video formats found")
}

func tailLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
