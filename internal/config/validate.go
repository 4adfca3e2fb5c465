package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTelephony(); err != nil {
		return err
	}
	if err := c.validateTranscriber(); err != nil {
		return err
	}
	if err := c.validateCoordinator(); err != nil {
		return err
	}
	if err := c.validateWatchdog(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.TranscriptDir) == "" {
		return errors.New("paths.transcript_dir must be set")
	}
	if strings.TrimSpace(c.Paths.QueueDir) == "" {
		return errors.New("paths.queue_dir must be set")
	}
	if c.Paths.TranscriptDir == c.Paths.QueueDir {
		return errors.New("paths.transcript_dir and paths.queue_dir must differ")
	}
	return nil
}

func (c *Config) validateTelephony() error {
	if strings.TrimSpace(c.Telephony.BaseURL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/callpipe/config.toml"
		}
		return fmt.Errorf("telephony.base_url is required. Edit %s (create with 'callpipe config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateTranscriber() error {
	if strings.TrimSpace(c.Transcriber.BaseURL) == "" {
		return errors.New("transcriber.base_url must be set")
	}
	return nil
}

func (c *Config) validateCoordinator() error {
	co := c.Coordinator
	if co.Workers > 32 {
		return errors.New("coordinator.workers must be 32 or fewer")
	}
	if co.MaxWait < co.PollInterval {
		return errors.New("coordinator.max_wait must be at least coordinator.poll_interval")
	}
	if co.RatePerMinute <= 0 {
		return errors.New("coordinator.rate_per_minute must be greater than zero")
	}
	if co.BackoffMax < co.BackoffInitial {
		return errors.New("coordinator.backoff_max must be at least coordinator.backoff_initial")
	}
	return nil
}

func (c *Config) validateWatchdog() error {
	if c.Watchdog.StallTimeout < c.Coordinator.HeartbeatInterval {
		return errors.New("watchdog.stall_timeout must be at least coordinator.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
