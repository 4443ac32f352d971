package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	langpkg "github.com/mwidera/plenum/internal/language"
	"github.com/mwidera/plenum/internal/logging"
	"github.com/mwidera/plenum/internal/services"
)

// DefaultBinary is the whisper CLI resolved from PATH when no override is
// configured.
const DefaultBinary = "whisper"

// DefaultModel balances accuracy against runtime on CPU-only hosts.
const DefaultModel = "base"

type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

// Segment is one timed span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the outcome of a transcription run.
type Result struct {
	Text             string
	DetectedLanguage string
	Segments         []Segment
}

// Transcriber wraps the whisper CLI.
type Transcriber struct {
	binary string
	model  string
	runner commandRunner
	logger *slog.Logger
}

// NewTranscriber constructs a transcriber for the given binary and model.
func NewTranscriber(binary, model string, logger *slog.Logger) *Transcriber {
	if binary == "" {
		binary = DefaultBinary
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcriber{
		binary: binary,
		model:  model,
		logger: logging.NewComponentLogger(logger, "whisper"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Transcriber) WithCommandRunner(runner commandRunner) {
	t.runner = runner
}

// Binary returns the configured executable for health checks.
func (t *Transcriber) Binary() string {
	return t.binary
}

// Model returns the configured model name for logging and transcript headers.
func (t *Transcriber) Model() string {
	return t.model
}

// Transcribe runs whisper over the audio file. An empty languageHint lets
// whisper autodetect; the result reports the language actually used.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, languageHint string) (Result, error) {
	outputDir, err := os.MkdirTemp("", "plenum-whisper-")
	if err != nil {
		return Result{}, services.Wrap(services.ErrTranscription, "whisper", "transcribe",
			"create output directory", err)
	}
	defer os.RemoveAll(outputDir)

	args := []string{
		audioPath,
		"--model", t.model,
		"--output_format", "json",
		"--output_dir", outputDir,
	}
	if lang := langpkg.ToISO2(languageHint); lang != "" {
		args = append(args, "--language", lang)
	}

	output, err := t.run(ctx, args...)
	if err != nil {
		return Result{}, t.classifyFailure(audioPath, output, err)
	}

	jsonPath := filepath.Join(outputDir, jsonBaseName(audioPath))
	result, err := loadResult(jsonPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTranscription, "whisper", "transcribe",
			fmt.Sprintf("read whisper output for %s", audioPath), err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return Result{}, services.Wrap(services.ErrEmptyResult, "whisper", "transcribe",
			fmt.Sprintf("whisper produced no speech for %s", audioPath), nil)
	}
	t.logger.Debug("transcription finished",
		logging.String("audio", audioPath),
		logging.String("language", result.DetectedLanguage),
		logging.Int("segments", len(result.Segments)))
	return result, nil
}

func (t *Transcriber) classifyFailure(audioPath, output string, err error) error {
	lower := strings.ToLower(output)
	if strings.Contains(lower, "out of memory") || strings.Contains(lower, "cuda error") {
		return services.Wrap(services.ErrResourceExhausted, "whisper", "transcribe",
			fmt.Sprintf("model %q ran out of memory on %s; try a smaller model", t.model, audioPath), err)
	}
	return services.Wrap(services.ErrTranscription, "whisper", "transcribe",
		fmt.Sprintf("whisper failed on %s: %s", audioPath, lastLine(output)), err)
}

func (t *Transcriber) run(ctx context.Context, args ...string) (string, error) {
	if t.runner != nil {
		return t.runner(ctx, t.binary, args...)
	}
	cmd := exec.CommandContext(ctx, t.binary, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func jsonBaseName(audioPath string) string {
	base := filepath.Base(audioPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}

type whisperPayload struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

func loadResult(jsonPath string) (Result, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Result{}, err
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Result{}, fmt.Errorf("parse whisper json: %w", err)
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		parts := make([]string, 0, len(payload.Segments))
		for _, seg := range payload.Segments {
			if segText := strings.TrimSpace(seg.Text); segText != "" {
				parts = append(parts, segText)
			}
		}
		text = strings.Join(parts, " ")
	}
	return Result{
		Text:             text,
		DetectedLanguage: payload.Language,
		Segments:         payload.Segments,
	}, nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
