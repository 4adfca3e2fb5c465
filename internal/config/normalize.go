package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTelephony()
	c.normalizeTranscriber()
	c.normalizeIngest()
	c.normalizeCoordinator()
	c.normalizeWatchdog()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.TranscriptDir, err = expandPath(c.Paths.TranscriptDir); err != nil {
		return fmt.Errorf("paths.transcript_dir: %w", err)
	}
	if c.Paths.QueueDir, err = expandPath(c.Paths.QueueDir); err != nil {
		return fmt.Errorf("paths.queue_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Watchdog.LockFile) != "" {
		if c.Watchdog.LockFile, err = expandPath(c.Watchdog.LockFile); err != nil {
			return fmt.Errorf("watchdog.lock_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeTelephony() {
	c.Telephony.BaseURL = strings.TrimRight(strings.TrimSpace(c.Telephony.BaseURL), "/")
	c.Telephony.APIToken = strings.TrimSpace(c.Telephony.APIToken)
	if c.Telephony.RequestTimeout <= 0 {
		c.Telephony.RequestTimeout = defaultTelephonyTimeout
	}
}

func (c *Config) normalizeTranscriber() {
	c.Transcriber.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcriber.BaseURL), "/")
	c.Transcriber.APIKey = strings.TrimSpace(c.Transcriber.APIKey)
	if c.Transcriber.RequestTimeout <= 0 {
		c.Transcriber.RequestTimeout = defaultTranscriberTimeout
	}
	if strings.TrimSpace(c.Transcriber.Language) == "" {
		c.Transcriber.Language = defaultTranscriberLang
	}
}

func (c *Config) normalizeIngest() {
	if c.Ingest.LookbackHours <= 0 {
		c.Ingest.LookbackHours = defaultLookbackHours
	}
	if c.Ingest.Interval <= 0 {
		c.Ingest.Interval = defaultIngestInterval
	}
	if c.Ingest.FuzzyWindowSecs <= 0 {
		c.Ingest.FuzzyWindowSecs = defaultFuzzyWindowSecs
	}
}

func (c *Config) normalizeCoordinator() {
	co := &c.Coordinator
	if co.Workers <= 0 {
		co.Workers = defaultWorkers
	}
	if co.ClaimLimit <= 0 {
		co.ClaimLimit = defaultClaimLimit
	}
	if co.MaxAttempts <= 0 {
		co.MaxAttempts = defaultMaxAttempts
	}
	if co.PollInterval <= 0 {
		co.PollInterval = defaultPollInterval
	}
	if co.MaxWait <= 0 {
		co.MaxWait = defaultMaxWait
	}
	if co.PollFailureLimit <= 0 {
		co.PollFailureLimit = defaultPollFailureLimit
	}
	if co.RatePerMinute == 0 {
		co.RatePerMinute = defaultRatePerMinute
	}
	if co.RateBurst <= 0 {
		co.RateBurst = defaultRateBurst
	}
	if co.BackoffInitial <= 0 {
		co.BackoffInitial = defaultBackoffInitial
	}
	if co.BackoffMax <= 0 {
		co.BackoffMax = defaultBackoffMax
	}
	if co.IdleWait <= 0 {
		co.IdleWait = defaultIdleWait
	}
	if co.HeartbeatInterval <= 0 {
		co.HeartbeatInterval = defaultHeartbeatInterval
	}
	if co.StaleClaimTimeout <= 0 {
		co.StaleClaimTimeout = defaultStaleClaimTimeout
	}
	if co.ErrorRetryInterval <= 0 {
		co.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeWatchdog() {
	if c.Watchdog.Interval <= 0 {
		c.Watchdog.Interval = defaultWatchdogInterval
	}
	if c.Watchdog.StallTimeout <= 0 {
		c.Watchdog.StallTimeout = defaultStallTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
