package testsupport

import (
	"path/filepath"
	"testing"

	"callpipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.TranscriptDir = filepath.Join(base, "transcripts")
	cfg.Paths.QueueDir = filepath.Join(base, "queue")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Telephony.BaseURL = "https://platform.test.invalid"
	cfg.Telephony.APIToken = "test-token"
	cfg.Transcriber.BaseURL = "https://stt.test.invalid"
	cfg.Transcriber.APIKey = "test-key"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithWorkers overrides the coordinator worker count on the test config.
func WithWorkers(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Coordinator.Workers = n
	}
}

// WithMaxAttempts overrides the coordinator attempt cap on the test config.
func WithMaxAttempts(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Coordinator.MaxAttempts = n
	}
}
