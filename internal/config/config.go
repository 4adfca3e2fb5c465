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

// Paths contains directory configuration for pipeline artifacts.
type Paths struct {
	StagingDir    string `toml:"staging_dir"`
	TranscriptDir string `toml:"transcript_dir"`
	QueueDir      string `toml:"queue_dir"`
	LogDir        string `toml:"log_dir"`
}

// Telephony contains configuration for the call-recording provider API.
type Telephony struct {
	BaseURL        string `toml:"base_url"`
	APIToken       string `toml:"api_token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Transcriber contains configuration for the speech-to-text service.
type Transcriber struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
	Language       string `toml:"language"`
}

// Ingest contains configuration for the ingestion fetcher.
type Ingest struct {
	LookbackHours   int     `toml:"lookback_hours"`
	Interval        int     `toml:"interval"`
	FuzzyWindowSecs float64 `toml:"fuzzy_window_seconds"`
}

// Coordinator contains configuration for the transcription job coordinator.
type Coordinator struct {
	Workers            int     `toml:"workers"`
	ClaimLimit         int     `toml:"claim_limit"`
	MaxAttempts        int     `toml:"max_attempts"`
	PollInterval       int     `toml:"poll_interval"`
	MaxWait            int     `toml:"max_wait"`
	PollFailureLimit   int     `toml:"poll_failure_limit"`
	RatePerMinute      float64 `toml:"rate_per_minute"`
	RateBurst          int     `toml:"rate_burst"`
	BackoffInitial     int     `toml:"backoff_initial"`
	BackoffMax         int     `toml:"backoff_max"`
	IdleWait           int     `toml:"idle_wait"`
	HeartbeatInterval  int     `toml:"heartbeat_interval"`
	StaleClaimTimeout  int     `toml:"stale_claim_timeout"`
	ErrorRetryInterval int     `toml:"error_retry_interval"`
}

// Fanout contains configuration for completed-result output.
type Fanout struct {
	Triggers []string `toml:"triggers"`
}

// Watchdog contains configuration for the supervisor.
type Watchdog struct {
	Interval     int    `toml:"interval"`
	StallTimeout int    `toml:"stall_timeout"`
	LockFile     string `toml:"lock_file"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for callpipe.
//
// Configuration sections by subsystem:
//   - Paths: staging, transcript output, downstream queue, and log directories
//   - Telephony: call-recording provider API connection
//   - Transcriber: speech-to-text service connection
//   - Ingest: fetch lookback window and dedup fuzzy matching
//   - Coordinator: worker concurrency, claim limits, retry and rate limits
//   - Fanout: downstream queue entry hints
//   - Watchdog: supervisor pass interval, stall threshold, lock marker
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Telephony   Telephony   `toml:"telephony"`
	Transcriber Transcriber `toml:"transcriber"`
	Ingest      Ingest      `toml:"ingest"`
	Coordinator Coordinator `toml:"coordinator"`
	Fanout      Fanout      `toml:"fanout"`
	Watchdog    Watchdog    `toml:"watchdog"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/callpipe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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

	projectPath, err := filepath.Abs("callpipe.toml")
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

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.TranscriptDir, c.Paths.QueueDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockFilePath returns the watchdog lock marker path, defaulting into the log directory.
func (c *Config) LockFilePath() string {
	if strings.TrimSpace(c.Watchdog.LockFile) != "" {
		return c.Watchdog.LockFile
	}
	return filepath.Join(c.Paths.LogDir, "callpipe-watchdog.lock")
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
