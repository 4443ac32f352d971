package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/config"
	"github.com/mwidera/plenum/internal/logging"
	"github.com/mwidera/plenum/internal/notifications"
	"github.com/mwidera/plenum/internal/progress"
	"github.com/mwidera/plenum/internal/services/esesja"
	"github.com/mwidera/plenum/internal/services/ffmpegx"
	"github.com/mwidera/plenum/internal/services/whisper"
	"github.com/mwidera/plenum/internal/services/ytdlp"
	"github.com/mwidera/plenum/internal/transcript"
	"github.com/mwidera/plenum/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openStore loads the progress store and takes the cross-process run lock.
// The caller releases the lock.
func (c *commandContext) openStore(ctx context.Context) (*progress.Store, *progress.RunLock, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	lock := progress.NewRunLock(cfg.Paths.ProgressFile)
	if err := lock.Acquire(); err != nil {
		return nil, nil, err
	}
	store := progress.NewStore(cfg.Paths.ProgressFile)
	if err := store.Load(ctx); err != nil {
		_ = lock.Release()
		return nil, nil, err
	}
	return store, lock, nil
}

func (c *commandContext) openCatalogCache() (*catalog.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return catalog.OpenCache(cfg.Paths.CatalogCache)
}

// refreshCatalog scrapes the listing, persists the snapshot and seeds
// pending records for new identifiers. Returns the fresh catalog.
func (c *commandContext) refreshCatalog(ctx context.Context, store *progress.Store, pages int) ([]catalog.Item, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	if pages <= 0 {
		pages = cfg.Source.Pages
	}

	client := esesja.NewClient(cfg, logger)
	items, err := client.Discover(ctx, pages)
	if err != nil {
		return nil, err
	}

	cache, err := c.openCatalogCache()
	if err != nil {
		return nil, err
	}
	defer cache.Close()
	if err := cache.Replace(ctx, items); err != nil {
		return nil, err
	}

	if store != nil {
		identifiers := make([]string, 0, len(items))
		for _, item := range items {
			identifiers = append(identifiers, item.Identifier)
		}
		added, err := store.EnsurePending(ctx, identifiers)
		if err != nil {
			return nil, err
		}
		if added > 0 {
			logger.Info("registered new sessions", logging.Int("count", added))
		}
	}
	return items, nil
}

// cachedCatalog serves the last discovered snapshot for offline selection.
func (c *commandContext) cachedCatalog(ctx context.Context) ([]catalog.Item, error) {
	cache, err := c.openCatalogCache()
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	items, err := cache.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("catalog cache is empty; run 'plenum discover' while online first")
	}
	return items, nil
}

func (c *commandContext) catalogItems(ctx context.Context, store *progress.Store, offline bool) ([]catalog.Item, error) {
	if offline {
		return c.cachedCatalog(ctx)
	}
	return c.refreshCatalog(ctx, store, 0)
}

func (c *commandContext) newOrchestrator(store *progress.Store) (*workflow.Orchestrator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	fetcher := ytdlp.NewFetcher(cfg.YtDlpBinary(), logger)
	resolver := esesja.NewClient(cfg, logger)
	converter := ffmpegx.NewExtractor(cfg.FFmpegBinary(), logger)
	transcriber := whisper.NewTranscriber(cfg.WhisperBinary(), cfg.Transcription.WhisperModel, logger)
	writer := transcript.NewWriter(cfg.Paths.TranscriptDir, transcriber.Model(), cfg.Transcription.Timestamps)
	notifier := notifications.NewService(cfg)

	return workflow.New(cfg, store, fetcher, resolver, converter, transcriber, writer, notifier, logger), nil
}

// selectItems maps resolved identifiers back onto catalog items, keeping
// resolution order.
func selectItems(items []catalog.Item, identifiers []string) []catalog.Item {
	byID := make(map[string]catalog.Item, len(items))
	for _, item := range items {
		byID[item.Identifier] = item
	}
	selected := make([]catalog.Item, 0, len(identifiers))
	for _, id := range identifiers {
		if item, ok := byID[id]; ok {
			selected = append(selected, item)
		}
	}
	return selected
}

func pluralSessions(n int) string {
	if n == 1 {
		return "1 session"
	}
	return fmt.Sprintf("%d sessions", n)
}
