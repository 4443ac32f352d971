package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/config"
	"github.com/mwidera/plenum/internal/logging"
	"github.com/mwidera/plenum/internal/notifications"
	"github.com/mwidera/plenum/internal/progress"
	"github.com/mwidera/plenum/internal/services"
	"github.com/mwidera/plenum/internal/stage"
)

// pipelineStage couples a handler with the status an item carries while the
// handler runs.
type pipelineStage struct {
	name             string
	processingStatus progress.Status
	handler          stage.Handler
}

// Orchestrator drives selected catalog items through the pipeline with a
// fixed-size worker pool. All record mutations go through the progress store,
// so an interrupt at any point leaves a resumable state on disk.
type Orchestrator struct {
	cfg      *config.Config
	store    *progress.Store
	stages   []pipelineStage
	fetcher  Fetcher
	notifier notifications.Service
	logger   *slog.Logger
	force    bool

	mu    sync.Mutex
	stats Stats
}

// New wires the three pipeline stages into an orchestrator.
func New(cfg *config.Config, store *progress.Store, fetcher Fetcher, resolver StreamResolver, converter Converter, transcriber Transcriber, writer ArtifactWriter, notifier notifications.Service, logger *slog.Logger) *Orchestrator {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	fetchTimeout := time.Duration(cfg.Processing.FetchTimeoutMinutes) * time.Minute
	stages := []pipelineStage{
		{"fetch", progress.StatusFetching, NewFetchStage(fetcher, resolver, cfg.Paths.MediaDir, fetchTimeout, logger)},
		{"convert", progress.StatusConverting, NewConvertStage(converter, cfg.Paths.AudioDir, logger)},
		{"transcribe", progress.StatusTranscribing, NewTranscribeStage(transcriber, writer, cfg.Transcription.Language, logger)},
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		stages:   stages,
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}
}

// NewWithStages constructs an orchestrator over explicit stage handlers
// (used in tests).
func NewWithStages(cfg *config.Config, store *progress.Store, fetcher Fetcher, notifier notifications.Service, logger *slog.Logger, stages ...pipelineStage) *Orchestrator {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		stages:   stages,
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}
}

// Stage builds a pipelineStage for NewWithStages.
func Stage(name string, processingStatus progress.Status, handler stage.Handler) pipelineStage {
	return pipelineStage{name: name, processingStatus: processingStatus, handler: handler}
}

// SetForce makes already-completed selections run again.
func (o *Orchestrator) SetForce(force bool) {
	o.force = force
}

// Preflight verifies every stage's external tooling before a run starts.
func (o *Orchestrator) Preflight(ctx context.Context) error {
	var missing []string
	for _, ps := range o.stages {
		health := ps.handler.HealthCheck(ctx)
		if !health.Ready {
			missing = append(missing, fmt.Sprintf("%s (%s)", health.Name, health.Detail))
		}
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, "workflow", "preflight",
			"stages not ready: "+strings.Join(missing, "; "), nil)
	}
	return nil
}

// Run processes the items in order and returns run statistics. A non-nil
// error means the run infrastructure broke (store writes failing); per-item
// pipeline failures are reported through Stats instead.
func (o *Orchestrator) Run(ctx context.Context, items []catalog.Item) (Stats, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	runLogger := o.logger.With(logging.String(logging.FieldRunID, runID))

	o.mu.Lock()
	o.stats = Stats{Selected: len(items)}
	o.mu.Unlock()

	start := time.Now()
	runLogger.Info("run started",
		logging.Int("selected", len(items)),
		logging.Int("workers", o.workerCount()))
	if err := o.notifier.NotifyRunStarted(ctx, len(items)); err != nil {
		runLogger.Warn("run-start notification failed", logging.Error(err))
	}

	jobs := make(chan catalog.Item, len(items))
	for _, item := range items {
		jobs <- item
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		storeMu  sync.Mutex
		storeErr error
	)
	for i := 0; i < o.workerCount(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				// Stop dispatching once the run is interrupted; items
				// already in a stage run to completion.
				if ctx.Err() != nil {
					return
				}
				if err := o.processItem(ctx, runLogger, item); err != nil {
					storeMu.Lock()
					if storeErr == nil {
						storeErr = err
					}
					storeMu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()

	o.mu.Lock()
	o.stats.Elapsed = time.Since(start)
	stats := o.stats
	o.mu.Unlock()

	runLogger.Info("run finished",
		logging.Int("completed", stats.Completed),
		logging.Int("failed", stats.Failed),
		logging.Int("skipped", stats.Skipped),
		logging.Int("exhausted", stats.Exhausted),
		logging.Duration("elapsed", stats.Elapsed))
	if err := o.notifier.NotifyRunCompleted(ctx, stats.Completed, stats.Failed, stats.Elapsed); err != nil {
		runLogger.Warn("run-end notification failed", logging.Error(err))
	}
	return stats, storeErr
}

func (o *Orchestrator) workerCount() int {
	workers := o.cfg.Processing.MaxConcurrent
	if workers < 1 {
		workers = 1
	}
	return workers
}

// processItem runs one item through all stages sequentially. The returned
// error is reserved for progress-store failures; pipeline errors land on the
// item's record.
func (o *Orchestrator) processItem(ctx context.Context, runLogger *slog.Logger, item catalog.Item) error {
	// Interrupts only gate dispatch in Run. Once an item is in flight its
	// record transitions must reach disk even when the run context is
	// canceled mid-stage, so everything below runs on a detached context.
	itemCtx := context.WithoutCancel(services.WithItemID(ctx, item.Identifier))
	itemLogger := logging.WithContext(itemCtx, runLogger)

	rec := o.store.Get(item.Identifier)
	if rec.Status == progress.StatusCompleted {
		if !o.force && !o.cfg.Processing.ForceReprocess {
			itemLogger.Info("already completed, skipping",
				logging.String("artifact", rec.ArtifactPath))
			o.bump(func(s *Stats) { s.Skipped++ })
			return nil
		}
		rec.ResetForRetry()
	}

	runID, _ := services.RunIDFromContext(ctx)
	task := &stage.Task{Item: item, Record: &rec, RunID: runID}
	for _, ps := range o.stages {
		if err := o.runStage(itemCtx, itemLogger, ps, task); err != nil {
			if upsertErr := o.recordFailure(itemCtx, itemLogger, task, err); upsertErr != nil {
				return upsertErr
			}
			return nil
		}
	}

	rec.MarkCompleted(task.TranscriptPath, time.Now())
	if err := o.store.Upsert(itemCtx, rec); err != nil {
		return fmt.Errorf("persist completion of %s: %w", item.Identifier, err)
	}
	o.bump(func(s *Stats) { s.Completed++ })
	itemLogger.Info("session completed",
		logging.String("artifact", task.TranscriptPath),
		logging.Int(logging.FieldAttempt, rec.AttemptCount))
	if err := o.notifier.NotifySessionCompleted(itemCtx, item.Title, task.TranscriptPath); err != nil {
		itemLogger.Warn("session notification failed", logging.Error(err))
	}

	if o.cfg.Processing.DeleteSourceAfter {
		o.cleanupSources(task)
	}
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, itemLogger *slog.Logger, ps pipelineStage, task *stage.Task) error {
	stageCtx := services.WithStage(ctx, ps.name)
	stageLogger := logging.WithContext(stageCtx, itemLogger)

	task.Record.MarkStage(ps.processingStatus, time.Now())
	if err := o.store.Upsert(stageCtx, *task.Record); err != nil {
		return fmt.Errorf("persist %s transition: %w", ps.name, err)
	}
	stageLogger.Info("stage started")

	if err := ps.handler.Prepare(stageCtx, task); err != nil {
		return err
	}
	// A first interrupt must not kill the stage mid-flight; the stage's own
	// timeout stays as the hard bound.
	execCtx, cancel := o.detachedStageContext(stageCtx)
	defer cancel()
	if err := ps.handler.Execute(execCtx, task); err != nil {
		return err
	}
	stageLogger.Info("stage finished")
	return nil
}

func (o *Orchestrator) detachedStageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	timeout := time.Duration(o.cfg.Processing.FetchTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, timeout)
}

// recordFailure persists the classified failure. The returned error is a
// store failure, not the pipeline error.
func (o *Orchestrator) recordFailure(ctx context.Context, itemLogger *slog.Logger, task *stage.Task, pipelineErr error) error {
	kind := services.Classify(pipelineErr)
	task.Record.MarkFailed(kind, pipelineErr.Error(), time.Now())
	if err := o.store.Upsert(ctx, *task.Record); err != nil {
		return fmt.Errorf("persist failure of %s: %w", task.Item.Identifier, err)
	}

	exhausted := progress.IsExhausted(*task.Record, o.cfg.Processing.MaxAttempts)
	o.bump(func(s *Stats) {
		s.Failed++
		if exhausted {
			s.Exhausted++
		}
	})
	itemLogger.Error("session failed",
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.Int(logging.FieldAttempt, task.Record.AttemptCount),
		logging.Bool("exhausted", exhausted),
		logging.Error(pipelineErr))
	if err := o.notifier.NotifyError(ctx, pipelineErr, "session "+task.Item.Identifier); err != nil {
		itemLogger.Warn("error notification failed", logging.Error(err))
	}
	return nil
}

func (o *Orchestrator) cleanupSources(task *stage.Task) {
	paths := []string{task.MediaPath}
	if task.AudioPath != task.MediaPath {
		paths = append(paths, task.AudioPath)
	}
	o.fetcher.Cleanup(paths...)
}

func (o *Orchestrator) bump(mutate func(*Stats)) {
	o.mu.Lock()
	mutate(&o.stats)
	o.mu.Unlock()
}
