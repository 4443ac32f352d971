package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mwidera/plenum/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	parsed, err := url.Parse(c.Source.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("source.base_url must be an absolute http(s) URL, got %q", c.Source.BaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("source.base_url must use http or https, got %q", parsed.Scheme)
	}
	if c.Source.Pages < 1 {
		return errors.New("source.pages must be >= 1")
	}
	if c.Source.RequestTimeout <= 0 {
		return errors.New("source.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if c.Processing.MaxConcurrent < 1 || c.Processing.MaxConcurrent > maxConcurrentLimit {
		return fmt.Errorf("processing.max_concurrent must be between 1 and %d", maxConcurrentLimit)
	}
	if c.Processing.MaxAttempts < 1 {
		return errors.New("processing.max_attempts must be >= 1")
	}
	if c.Processing.FetchTimeoutMinutes < 1 {
		return errors.New("processing.fetch_timeout_minutes must be >= 1")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if strings.TrimSpace(c.Transcription.WhisperModel) == "" {
		return errors.New("transcription.whisper_model must be set")
	}
	// Empty language means whisper autodetects.
	if lang := c.Transcription.Language; lang != "" && language.ToISO2(lang) == "" {
		return fmt.Errorf("transcription.language must be an ISO 639-1 code, got %q", lang)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}
