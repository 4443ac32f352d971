package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/config"
	"github.com/mwidera/plenum/internal/progress"
	"github.com/mwidera/plenum/internal/services"
	"github.com/mwidera/plenum/internal/stage"
)

type stubHandler struct {
	name    string
	execute func(ctx context.Context, task *stage.Task) error
	ready   bool
}

func (h *stubHandler) Prepare(context.Context, *stage.Task) error { return nil }

func (h *stubHandler) Execute(ctx context.Context, task *stage.Task) error {
	if h.execute != nil {
		return h.execute(ctx, task)
	}
	task.TranscriptPath = "/t/sesja_" + task.Item.Identifier + ".md"
	return nil
}

func (h *stubHandler) HealthCheck(context.Context) stage.Health {
	if h.ready {
		return stage.Healthy(h.name)
	}
	return stage.Unhealthy(h.name, "stub not ready")
}

type stubFetcher struct {
	cleaned []string
	mu      sync.Mutex
}

func (f *stubFetcher) Fetch(ctx context.Context, item catalog.Item, destDir string, timeout time.Duration) (string, error) {
	return filepath.Join(destDir, "sesja_"+item.Identifier+".mp4"), nil
}

func (f *stubFetcher) Cleanup(paths ...string) {
	f.mu.Lock()
	f.cleaned = append(f.cleaned, paths...)
	f.mu.Unlock()
}

func (f *stubFetcher) Binary() string { return "yt-dlp" }

func testConfig(t *testing.T, workers int) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.MediaDir = filepath.Join(dir, "media")
	cfg.Paths.AudioDir = filepath.Join(dir, "audio")
	cfg.Paths.TranscriptDir = filepath.Join(dir, "transcripts")
	cfg.Paths.ProgressFile = filepath.Join(dir, "progress.json")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Processing.MaxConcurrent = workers
	return &cfg
}

func testStore(t *testing.T, cfg *config.Config) *progress.Store {
	t.Helper()
	store := progress.NewStore(cfg.Paths.ProgressFile)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load store: %v", err)
	}
	return store
}

func testItems(n int) []catalog.Item {
	items := make([]catalog.Item, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, catalog.Item{
			Identifier: fmt.Sprintf("%d", i),
			Title:      fmt.Sprintf("Sesja %d", i),
			SourceURL:  fmt.Sprintf("https://esesja.tv/transmisja/%d/sesja.htm", i),
		})
	}
	return items
}

func singleStage(execute func(ctx context.Context, task *stage.Task) error) pipelineStage {
	return Stage("transcribe", progress.StatusTranscribing, &stubHandler{name: "transcribe", execute: execute, ready: true})
}

func TestRunCompletesAllItems(t *testing.T) {
	cfg := testConfig(t, 2)
	store := testStore(t, cfg)
	orch := NewWithStages(cfg, store, &stubFetcher{}, nil, nil, singleStage(nil))

	stats, err := orch.Run(context.Background(), testItems(5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Selected != 5 || stats.Completed != 5 || stats.Failed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	for _, item := range testItems(5) {
		rec := store.Get(item.Identifier)
		if rec.Status != progress.StatusCompleted {
			t.Fatalf("item %s not completed: %q", item.Identifier, rec.Status)
		}
		if rec.ArtifactPath == "" || rec.AttemptCount != 1 {
			t.Fatalf("item %s has bad completion record %+v", item.Identifier, rec)
		}
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	cfg := testConfig(t, 2)
	store := testStore(t, cfg)

	orch := NewWithStages(cfg, store, &stubFetcher{}, nil, nil, singleStage(func(ctx context.Context, task *stage.Task) error {
		if task.Item.Identifier == "2" {
			return services.Wrap(services.ErrNetwork, "fetch", "download", "connection reset", nil)
		}
		task.TranscriptPath = "/t/sesja_" + task.Item.Identifier + ".md"
		return nil
	}))

	stats, err := orch.Run(context.Background(), testItems(5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Completed != 4 || stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	rec := store.Get("2")
	if rec.Status != progress.StatusFailed {
		t.Fatalf("expected item 2 failed, got %q", rec.Status)
	}
	if rec.LastErrorKind != services.KindNetworkError {
		t.Fatalf("expected network_error kind, got %q", rec.LastErrorKind)
	}
	if rec.AttemptCount != 1 {
		t.Fatalf("expected 1 attempt, got %d", rec.AttemptCount)
	}
}

func TestRunSkipsCompletedWithoutForce(t *testing.T) {
	cfg := testConfig(t, 1)
	store := testStore(t, cfg)

	done := progress.NewRecord("1")
	done.MarkCompleted("/t/sesja_1.md", time.Now())
	if err := store.Upsert(context.Background(), done); err != nil {
		t.Fatal(err)
	}

	var executed atomic.Int32
	orch := NewWithStages(cfg, store, &stubFetcher{}, nil, nil, singleStage(func(ctx context.Context, task *stage.Task) error {
		executed.Add(1)
		task.TranscriptPath = "/t/sesja_" + task.Item.Identifier + ".md"
		return nil
	}))

	stats, err := orch.Run(context.Background(), testItems(2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Skipped != 1 || stats.Completed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if executed.Load() != 1 {
		t.Fatalf("expected only item 2 executed, got %d executions", executed.Load())
	}

	orch.SetForce(true)
	stats, err = orch.Run(context.Background(), testItems(1))
	if err != nil {
		t.Fatalf("forced Run: %v", err)
	}
	if stats.Skipped != 0 || stats.Completed != 1 {
		t.Fatalf("force should reprocess, stats %+v", stats)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	cfg := testConfig(t, 2)
	store := testStore(t, cfg)

	var inFlight, peak atomic.Int32
	orch := NewWithStages(cfg, store, &stubFetcher{}, nil, nil, singleStage(func(ctx context.Context, task *stage.Task) error {
		now := inFlight.Add(1)
		for {
			current := peak.Load()
			if now <= current || peak.CompareAndSwap(current, now) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		task.TranscriptPath = "/t/sesja_" + task.Item.Identifier + ".md"
		return nil
	}))

	if _, err := orch.Run(context.Background(), testItems(8)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("worker pool exceeded bound: peak %d", got)
	}
}

func TestRunDispatchesInSelectionOrder(t *testing.T) {
	cfg := testConfig(t, 1)
	store := testStore(t, cfg)

	var order []string
	orch := NewWithStages(cfg, store, &stubFetcher{}, nil, nil, singleStage(func(ctx context.Context, task *stage.Task) error {
		order = append(order, task.Item.Identifier)
		task.TranscriptPath = "/t/sesja_" + task.Item.Identifier + ".md"
		return nil
	}))

	if _, err := orch.Run(context.Background(), testItems(4)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, id := range []string{"1", "2", "3", "4"} {
		if order[i] != id {
			t.Fatalf("dispatch order %v violates selection order", order)
		}
	}
}

func TestRunStopsDispatchOnCancel(t *testing.T) {
	cfg := testConfig(t, 1)
	store := testStore(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	orch := NewWithStages(cfg, store, &stubFetcher{}, nil, nil, singleStage(func(execCtx context.Context, task *stage.Task) error {
		// First interrupt arrives while this stage runs; the stage still
		// finishes because its context is detached from the run context.
		cancel()
		if execCtx.Err() != nil {
			t.Fatal("stage context canceled by run interrupt")
		}
		task.TranscriptPath = "/t/sesja_" + task.Item.Identifier + ".md"
		return nil
	}))

	stats, err := orch.Run(ctx, testItems(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Completed != 1 {
		t.Fatalf("expected the in-flight item to finish, stats %+v", stats)
	}
	for _, id := range []string{"2", "3"} {
		if rec := store.Get(id); rec.Status != progress.StatusPending {
			t.Fatalf("item %s should remain pending after cancel, got %q", id, rec.Status)
		}
	}

	// The completed transition must be on disk despite the canceled run
	// context; a reload must not see the item stuck mid-stage.
	reloaded := progress.NewStore(cfg.Paths.ProgressFile)
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("reload store: %v", err)
	}
	rec := reloaded.Get("1")
	if rec.Status != progress.StatusCompleted {
		t.Fatalf("expected persisted completion, got %q", rec.Status)
	}
	if rec.ArtifactPath == "" || rec.AttemptCount != 1 {
		t.Fatalf("persisted completion record incomplete: %+v", rec)
	}
}

func TestRunCountsExhaustedItems(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Processing.MaxAttempts = 1
	store := testStore(t, cfg)

	orch := NewWithStages(cfg, store, &stubFetcher{}, nil, nil, singleStage(func(ctx context.Context, task *stage.Task) error {
		return services.Wrap(services.ErrTranscription, "transcribe", "run", "boom", nil)
	}))

	stats, err := orch.Run(context.Background(), testItems(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Failed != 1 || stats.Exhausted != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRunCleansSourcesWhenConfigured(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Processing.DeleteSourceAfter = true
	store := testStore(t, cfg)

	fetcher := &stubFetcher{}
	orch := NewWithStages(cfg, store, fetcher, nil, nil, singleStage(func(ctx context.Context, task *stage.Task) error {
		task.MediaPath = "/m/sesja_1.mp4"
		task.AudioPath = "/a/sesja_1.wav"
		task.TranscriptPath = "/t/sesja_1.md"
		return nil
	}))

	if _, err := orch.Run(context.Background(), testItems(1)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fetcher.cleaned) != 2 {
		t.Fatalf("expected media and audio cleanup, got %v", fetcher.cleaned)
	}
}

func TestPreflightReportsUnhealthyStages(t *testing.T) {
	cfg := testConfig(t, 1)
	store := testStore(t, cfg)

	orch := NewWithStages(cfg, store, &stubFetcher{}, nil, nil,
		Stage("fetch", progress.StatusFetching, &stubHandler{name: "fetch", ready: true}),
		Stage("transcribe", progress.StatusTranscribing, &stubHandler{name: "transcribe", ready: false}),
	)

	err := orch.Preflight(context.Background())
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	if !strings.Contains(err.Error(), "transcribe") {
		t.Fatalf("expected unhealthy stage named, got %v", err)
	}
}
