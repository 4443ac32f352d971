package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/services"
	"github.com/mwidera/plenum/internal/services/whisper"
	"github.com/mwidera/plenum/internal/stage"
)

type fakeFetcher struct {
	fetch func(ctx context.Context, item catalog.Item, destDir string, timeout time.Duration) (string, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, item catalog.Item, destDir string, timeout time.Duration) (string, error) {
	return f.fetch(ctx, item, destDir, timeout)
}
func (f *fakeFetcher) Cleanup(...string) {}
func (f *fakeFetcher) Binary() string    { return "yt-dlp" }

type fakeResolver struct {
	streamURL string
	err       error
	calls     int
}

func (r *fakeResolver) StreamURL(context.Context, string) (string, error) {
	r.calls++
	return r.streamURL, r.err
}

type fakeConverter struct {
	extract func(ctx context.Context, mediaPath, audioDir string) (string, error)
}

func (c *fakeConverter) ExtractAudio(ctx context.Context, mediaPath, audioDir string) (string, error) {
	return c.extract(ctx, mediaPath, audioDir)
}
func (c *fakeConverter) Binary() string { return "ffmpeg" }

type fakeTranscriber struct {
	result whisper.Result
	err    error
	hint   string
}

func (tr *fakeTranscriber) Transcribe(_ context.Context, _ string, hint string) (whisper.Result, error) {
	tr.hint = hint
	return tr.result, tr.err
}
func (tr *fakeTranscriber) Binary() string { return "whisper" }
func (tr *fakeTranscriber) Model() string  { return "base" }

type fakeWriter struct {
	path string
	err  error
}

func (w *fakeWriter) Write(catalog.Item, whisper.Result, time.Duration, time.Duration) (string, error) {
	return w.path, w.err
}

func sessionItem() catalog.Item {
	return catalog.Item{
		Identifier: "67352",
		Title:      "Sesja",
		SourceURL:  "https://esesja.tv/transmisja/67352/sesja.htm",
	}
}

func TestFetchStageFallsBackToResolvedStream(t *testing.T) {
	resolver := &fakeResolver{streamURL: "https://cdn.esesja.tv/hls/67352.m3u8"}
	var fetchedURLs []string
	fetcher := &fakeFetcher{fetch: func(_ context.Context, item catalog.Item, _ string, _ time.Duration) (string, error) {
		fetchedURLs = append(fetchedURLs, item.SourceURL)
		if len(fetchedURLs) == 1 {
			return "", services.Wrap(services.ErrUnsupportedFormat, "ytdlp", "fetch", "unsupported url", nil)
		}
		return "/m/sesja_67352.mp4", nil
	}}

	handler := NewFetchStage(fetcher, resolver, t.TempDir(), time.Minute, nil)
	task := &stage.Task{Item: sessionItem()}
	if err := handler.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.MediaPath != "/m/sesja_67352.mp4" {
		t.Fatalf("unexpected media path %q", task.MediaPath)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected one resolver call, got %d", resolver.calls)
	}
	if fetchedURLs[1] != resolver.streamURL {
		t.Fatalf("second fetch should use resolved stream, got %q", fetchedURLs[1])
	}
	if task.FetchDuration <= 0 {
		t.Fatal("expected fetch duration recorded")
	}
}

func TestFetchStageNetworkErrorsNotResolved(t *testing.T) {
	resolver := &fakeResolver{streamURL: "unused"}
	fetcher := &fakeFetcher{fetch: func(context.Context, catalog.Item, string, time.Duration) (string, error) {
		return "", services.Wrap(services.ErrNetwork, "ytdlp", "fetch", "reset", nil)
	}}

	handler := NewFetchStage(fetcher, resolver, t.TempDir(), time.Minute, nil)
	err := handler.Execute(context.Background(), &stage.Task{Item: sessionItem()})
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if resolver.calls != 0 {
		t.Fatal("network failures must not trigger stream resolution")
	}
}

func TestFetchStagePrepareRequiresSourceURL(t *testing.T) {
	handler := NewFetchStage(&fakeFetcher{}, nil, t.TempDir(), time.Minute, nil)
	item := sessionItem()
	item.SourceURL = ""
	err := handler.Prepare(context.Background(), &stage.Task{Item: item})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestConvertStageSkipsAudioOnlyMedia(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "sesja_1.mp3")
	if err := os.WriteFile(mediaPath, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	converter := &fakeConverter{extract: func(context.Context, string, string) (string, error) {
		t.Fatal("conversion must be skipped for audio-only inputs")
		return "", nil
	}}
	handler := NewConvertStage(converter, dir, nil)

	task := &stage.Task{Item: sessionItem(), MediaPath: mediaPath}
	if err := handler.Prepare(context.Background(), task); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.AudioPath != mediaPath {
		t.Fatalf("expected audio path to reuse media path, got %q", task.AudioPath)
	}
}

func TestConvertStageExtractsVideoAudio(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "sesja_1.mp4")
	if err := os.WriteFile(mediaPath, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	converter := &fakeConverter{extract: func(_ context.Context, media, audioDir string) (string, error) {
		return filepath.Join(audioDir, "sesja_1.wav"), nil
	}}
	handler := NewConvertStage(converter, dir, nil)

	task := &stage.Task{Item: sessionItem(), MediaPath: mediaPath}
	if err := handler.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if filepath.Base(task.AudioPath) != "sesja_1.wav" {
		t.Fatalf("unexpected audio path %q", task.AudioPath)
	}
}

func TestTranscribeStageWritesArtifact(t *testing.T) {
	transcriber := &fakeTranscriber{result: whisper.Result{Text: "treść", DetectedLanguage: "pl"}}
	writer := &fakeWriter{path: "/t/sesja_67352.md"}
	handler := NewTranscribeStage(transcriber, writer, "pl", nil)

	task := &stage.Task{Item: sessionItem(), AudioPath: "/a/sesja_67352.wav"}
	if err := handler.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.TranscriptPath != writer.path {
		t.Fatalf("unexpected transcript path %q", task.TranscriptPath)
	}
	if task.Language != "pl" {
		t.Fatalf("unexpected language %q", task.Language)
	}
	if transcriber.hint != "pl" {
		t.Fatalf("language hint not passed, got %q", transcriber.hint)
	}
}

func TestTranscribeStagePropagatesEmptyResult(t *testing.T) {
	transcriber := &fakeTranscriber{err: services.Wrap(services.ErrEmptyResult, "whisper", "transcribe", "silence", nil)}
	handler := NewTranscribeStage(transcriber, &fakeWriter{}, "pl", nil)

	err := handler.Execute(context.Background(), &stage.Task{Item: sessionItem(), AudioPath: "/a/x.wav"})
	if !errors.Is(err, services.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}
