package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Source contains configuration for the esesja.tv listing scraper.
type Source struct {
	BaseURL        string `toml:"base_url"`
	Pages          int    `toml:"pages"`
	RequestTimeout int    `toml:"request_timeout"`
	RequestDelayMS int    `toml:"request_delay_ms"`
	UserAgent      string `toml:"user_agent"`
}

// Paths contains directory and file locations used by the pipeline.
type Paths struct {
	MediaDir      string `toml:"media_dir"`
	AudioDir      string `toml:"audio_dir"`
	TranscriptDir string `toml:"transcript_dir"`
	ProgressFile  string `toml:"progress_file"`
	CatalogCache  string `toml:"catalog_cache"`
	LogDir        string `toml:"log_dir"`
}

// Processing contains orchestrator limits and retry accounting.
type Processing struct {
	MaxConcurrent       int  `toml:"max_concurrent"`
	MaxAttempts         int  `toml:"max_attempts"`
	FetchTimeoutMinutes int  `toml:"fetch_timeout_minutes"`
	DeleteSourceAfter   bool `toml:"delete_source_after"`
	ForceReprocess      bool `toml:"force_reprocess"`
}

// Transcription contains whisper invocation settings.
type Transcription struct {
	WhisperModel string `toml:"whisper_model"`
	Language     string `toml:"language"`
	Timestamps   bool   `toml:"timestamps"`
}

// Tools contains external binary overrides. Empty values fall back to the
// conventional binary names resolved via PATH.
type Tools struct {
	YtDlpPath   string `toml:"ytdlp_path"`
	FFmpegPath  string `toml:"ffmpeg_path"`
	WhisperPath string `toml:"whisper_path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for plenum.
//
// Configuration sections by subsystem:
//   - Source: listing site, pagination, and request behavior
//   - Paths: media/audio/transcript directories and the progress store
//   - Processing: concurrency bound, retry budget, fetch timeout
//   - Transcription: whisper model and language hint
//   - Tools: external binary overrides (yt-dlp, ffmpeg, whisper)
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Source        Source        `toml:"source"`
	Paths         Paths         `toml:"paths"`
	Processing    Processing    `toml:"processing"`
	Transcription Transcription `toml:"transcription"`
	Tools         Tools         `toml:"tools"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/plenum/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. A missing file is not an error;
// defaults apply and exists reports false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("plenum.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into, plus the
// parent directories of the progress store and catalog cache files.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.MediaDir, c.Paths.AudioDir, c.Paths.TranscriptDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, file := range []string{c.Paths.ProgressFile, c.Paths.CatalogCache} {
		if dir := filepath.Dir(file); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create directory %q: %w", dir, err)
			}
		}
	}
	return nil
}

// YtDlpBinary returns the yt-dlp executable to invoke.
func (c *Config) YtDlpBinary() string {
	if bin := strings.TrimSpace(c.Tools.YtDlpPath); bin != "" {
		return bin
	}
	return "yt-dlp"
}

// FFmpegBinary returns the ffmpeg executable to invoke.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFmpegPath); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// WhisperBinary returns the whisper executable to invoke.
func (c *Config) WhisperBinary() string {
	if bin := strings.TrimSpace(c.Tools.WhisperPath); bin != "" {
		return bin
	}
	return "whisper"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
