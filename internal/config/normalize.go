package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeProcessing()
	c.normalizeTranscription()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = defaultMediaDir
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AudioDir) == "" {
		c.Paths.AudioDir = defaultAudioDir
	}
	if c.Paths.AudioDir, err = expandPath(c.Paths.AudioDir); err != nil {
		return fmt.Errorf("paths.audio_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TranscriptDir) == "" {
		c.Paths.TranscriptDir = defaultTranscriptDir
	}
	if c.Paths.TranscriptDir, err = expandPath(c.Paths.TranscriptDir); err != nil {
		return fmt.Errorf("paths.transcript_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProgressFile) == "" {
		c.Paths.ProgressFile = defaultProgressFile
	}
	if c.Paths.ProgressFile, err = expandPath(c.Paths.ProgressFile); err != nil {
		return fmt.Errorf("paths.progress_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogCache) == "" {
		c.Paths.CatalogCache = defaultCatalogCache
	}
	if c.Paths.CatalogCache, err = expandPath(c.Paths.CatalogCache); err != nil {
		return fmt.Errorf("paths.catalog_cache: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.BaseURL = strings.TrimRight(strings.TrimSpace(c.Source.BaseURL), "/")
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = defaultBaseURL
	}
	if c.Source.Pages == 0 {
		c.Source.Pages = defaultPages
	}
	if c.Source.RequestTimeout == 0 {
		c.Source.RequestTimeout = defaultRequestTimeout
	}
	if c.Source.RequestDelayMS < 0 {
		c.Source.RequestDelayMS = 0
	}
	c.Source.UserAgent = strings.TrimSpace(c.Source.UserAgent)
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeProcessing() {
	if c.Processing.MaxConcurrent == 0 {
		c.Processing.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Processing.MaxAttempts == 0 {
		c.Processing.MaxAttempts = defaultMaxAttempts
	}
	if c.Processing.FetchTimeoutMinutes == 0 {
		c.Processing.FetchTimeoutMinutes = defaultFetchTimeoutMinutes
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.WhisperModel = strings.TrimSpace(c.Transcription.WhisperModel)
	if c.Transcription.WhisperModel == "" {
		c.Transcription.WhisperModel = defaultWhisperModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PLENUM_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
