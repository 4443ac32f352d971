package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/logging"
	"github.com/mwidera/plenum/internal/services"
	"github.com/mwidera/plenum/internal/services/ffmpegx"
	"github.com/mwidera/plenum/internal/services/whisper"
	"github.com/mwidera/plenum/internal/stage"
)

// Fetcher downloads session media.
type Fetcher interface {
	Fetch(ctx context.Context, item catalog.Item, destDir string, timeout time.Duration) (string, error)
	Cleanup(paths ...string)
	Binary() string
}

// StreamResolver extracts the raw stream URL from a session page. Used as a
// fallback when yt-dlp cannot make sense of the page itself.
type StreamResolver interface {
	StreamURL(ctx context.Context, pageURL string) (string, error)
}

// Converter extracts transcription-ready audio from downloaded media.
type Converter interface {
	ExtractAudio(ctx context.Context, mediaPath, audioDir string) (string, error)
	Binary() string
}

// Transcriber turns audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, languageHint string) (whisper.Result, error)
	Binary() string
	Model() string
}

// ArtifactWriter renders the final transcript file.
type ArtifactWriter interface {
	Write(item catalog.Item, res whisper.Result, fetchDur, transcribeDur time.Duration) (string, error)
}

type fetchStage struct {
	fetcher  Fetcher
	resolver StreamResolver
	mediaDir string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewFetchStage builds the download stage. resolver may be nil; with it set,
// pages yt-dlp rejects get a second chance through direct stream extraction.
func NewFetchStage(fetcher Fetcher, resolver StreamResolver, mediaDir string, timeout time.Duration, logger *slog.Logger) stage.Handler {
	return &fetchStage{
		fetcher:  fetcher,
		resolver: resolver,
		mediaDir: mediaDir,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "fetch"),
	}
}

func (s *fetchStage) Prepare(_ context.Context, task *stage.Task) error {
	if task.Item.SourceURL == "" {
		return services.Wrap(services.ErrValidation, "fetch", "prepare",
			fmt.Sprintf("session %s has no source url", task.Item.Identifier), nil)
	}
	return nil
}

func (s *fetchStage) Execute(ctx context.Context, task *stage.Task) error {
	start := time.Now()
	mediaPath, err := s.fetcher.Fetch(ctx, task.Item, s.mediaDir, s.timeout)
	if err != nil && errors.Is(err, services.ErrUnsupportedFormat) && s.resolver != nil {
		streamURL, resolveErr := s.resolver.StreamURL(ctx, task.Item.SourceURL)
		if resolveErr != nil {
			return err
		}
		s.logger.Info("retrying download via extracted stream url",
			logging.String(logging.FieldItemID, task.Item.Identifier))
		streamItem := task.Item
		streamItem.SourceURL = streamURL
		mediaPath, err = s.fetcher.Fetch(ctx, streamItem, s.mediaDir, s.timeout)
	}
	if err != nil {
		return err
	}
	task.MediaPath = mediaPath
	task.FetchDuration = time.Since(start)
	s.logger.Info("media downloaded",
		logging.String(logging.FieldItemID, task.Item.Identifier),
		logging.String("path", mediaPath),
		logging.Duration("duration", task.FetchDuration))
	return nil
}

func (s *fetchStage) HealthCheck(context.Context) stage.Health {
	return stage.BinaryHealth("fetch", s.fetcher.Binary())
}

type convertStage struct {
	converter Converter
	audioDir  string
	logger    *slog.Logger
}

// NewConvertStage builds the audio extraction stage.
func NewConvertStage(converter Converter, audioDir string, logger *slog.Logger) stage.Handler {
	return &convertStage{
		converter: converter,
		audioDir:  audioDir,
		logger:    logging.NewComponentLogger(logger, "convert"),
	}
}

func (s *convertStage) Prepare(_ context.Context, task *stage.Task) error {
	if task.MediaPath == "" {
		return services.Wrap(services.ErrValidation, "convert", "prepare",
			fmt.Sprintf("session %s has no downloaded media", task.Item.Identifier), nil)
	}
	if _, err := os.Stat(task.MediaPath); err != nil {
		return services.Wrap(services.ErrValidation, "convert", "prepare",
			fmt.Sprintf("media file %s is gone", task.MediaPath), err)
	}
	return nil
}

func (s *convertStage) Execute(ctx context.Context, task *stage.Task) error {
	if ffmpegx.SkipConversion(task.MediaPath) {
		task.AudioPath = task.MediaPath
		s.logger.Info("media already audio-only, skipping conversion",
			logging.String(logging.FieldItemID, task.Item.Identifier),
			logging.String("path", task.MediaPath))
		return nil
	}
	audioPath, err := s.converter.ExtractAudio(ctx, task.MediaPath, s.audioDir)
	if err != nil {
		return err
	}
	task.AudioPath = audioPath
	return nil
}

func (s *convertStage) HealthCheck(context.Context) stage.Health {
	return stage.BinaryHealth("convert", s.converter.Binary())
}

type transcribeStage struct {
	transcriber  Transcriber
	writer       ArtifactWriter
	languageHint string
	logger       *slog.Logger
}

// NewTranscribeStage builds the transcription stage. It owns both the whisper
// invocation and the artifact write so a completed status always implies a
// transcript on disk.
func NewTranscribeStage(transcriber Transcriber, writer ArtifactWriter, languageHint string, logger *slog.Logger) stage.Handler {
	return &transcribeStage{
		transcriber:  transcriber,
		writer:       writer,
		languageHint: languageHint,
		logger:       logging.NewComponentLogger(logger, "transcribe"),
	}
}

func (s *transcribeStage) Prepare(_ context.Context, task *stage.Task) error {
	if task.AudioPath == "" {
		return services.Wrap(services.ErrValidation, "transcribe", "prepare",
			fmt.Sprintf("session %s has no audio to transcribe", task.Item.Identifier), nil)
	}
	return nil
}

func (s *transcribeStage) Execute(ctx context.Context, task *stage.Task) error {
	start := time.Now()
	result, err := s.transcriber.Transcribe(ctx, task.AudioPath, s.languageHint)
	if err != nil {
		return err
	}
	task.TranscribeDuration = time.Since(start)
	task.Language = result.DetectedLanguage
	if task.Language == "" {
		task.Language = s.languageHint
	}

	artifactPath, err := s.writer.Write(task.Item, result, task.FetchDuration, task.TranscribeDuration)
	if err != nil {
		return err
	}
	task.TranscriptPath = artifactPath
	s.logger.Info("transcript written",
		logging.String(logging.FieldItemID, task.Item.Identifier),
		logging.String("path", artifactPath),
		logging.String("language", task.Language),
		logging.Duration("duration", task.TranscribeDuration))
	return nil
}

func (s *transcribeStage) HealthCheck(context.Context) stage.Health {
	return stage.BinaryHealth("transcribe", s.transcriber.Binary())
}
