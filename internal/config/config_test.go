package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"callpipe/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[telephony]
base_url = "https://platform.example.com/v1"
api_token = "token"

[transcriber]
base_url = "https://stt.example.com/v1"
api_key = "key"
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to be used, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Coordinator.Workers != 2 {
		t.Fatalf("expected default workers 2, got %d", cfg.Coordinator.Workers)
	}
	if cfg.Coordinator.MaxAttempts != 5 {
		t.Fatalf("expected default max attempts 5, got %d", cfg.Coordinator.MaxAttempts)
	}
	if cfg.Ingest.FuzzyWindowSecs != 5.0 {
		t.Fatalf("expected default fuzzy window 5s, got %v", cfg.Ingest.FuzzyWindowSecs)
	}
	if !filepath.IsAbs(cfg.Paths.QueueDir) {
		t.Fatalf("expected queue dir to be absolute, got %s", cfg.Paths.QueueDir)
	}
}

func TestLoadRejectsMissingTelephonyURL(t *testing.T) {
	path := writeConfig(t, `
[transcriber]
base_url = "https://stt.example.com/v1"
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for missing telephony.base_url")
	} else if !strings.Contains(err.Error(), "telephony.base_url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
[logging]
format = "xml"
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestLoadRejectsNegativeRate(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
[coordinator]
rate_per_minute = -1.0
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for negative rate_per_minute")
	} else if !strings.Contains(err.Error(), "rate_per_minute") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCoordinatorBounds(t *testing.T) {
	cfg := config.Default()
	cfg.Telephony.BaseURL = "https://platform.example.com"
	cfg.Transcriber.BaseURL = "https://stt.example.com"
	cfg.Coordinator.MaxWait = 1
	cfg.Coordinator.PollInterval = 10

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected max_wait validation error")
	}
}

func TestLockFilePathDefaultsIntoLogDir(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.LockFilePath(); filepath.Dir(got) != cfg.Paths.LogDir {
		t.Fatalf("expected lock file in log dir, got %s", got)
	}
}

func TestCreateSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[coordinator]") {
		t.Fatal("sample config missing coordinator section")
	}
}
